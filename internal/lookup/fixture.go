package lookup

import (
	"encoding/json"
	"net/http"
	"os"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/transform"
	"golang.org/x/text/width"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/addressbook-cli/internal/model"
)

// Fixture is a static set of raw address records served in place of the
// real lookup endpoint.
type Fixture struct {
	Addresses []model.RawAddress `yaml:"addresses"`
}

// LoadFixture reads a YAML fixture file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "fixture: read %s", path)
	}
	return ParseFixture(data)
}

// ParseFixture decodes a YAML fixture document.
func ParseFixture(data []byte) (*Fixture, error) {
	var f Fixture
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, eris.Wrap(err, "fixture: parse yaml")
	}
	return &f, nil
}

// Match returns the records whose postcode matches ignoring case, width and
// spacing, and whose house number matches exactly.
func (f *Fixture) Match(req Request) []model.RawAddress {
	want := foldPostcode(req.Postcode)
	var out []model.RawAddress
	for _, a := range f.Addresses {
		if a.Postcode == nil || a.HouseNumber == nil {
			continue
		}
		if foldPostcode(*a.Postcode) == want && *a.HouseNumber == req.HouseNumber {
			out = append(out, a)
		}
	}
	return out
}

func foldPostcode(s string) string {
	folded, _, err := transform.String(transform.Chain(width.Fold, cases.Fold()), s)
	if err != nil {
		folded = strings.ToLower(s)
	}
	return strings.Join(strings.Fields(folded), "")
}

// NewFixtureHandler serves the lookup wire format from f.
func NewFixtureHandler(f *Fixture) http.Handler {
	r := chi.NewRouter()
	r.Get(AddressesPath, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		req := Request{
			Postcode:    q.Get("postcode"),
			HouseNumber: q.Get("streetnumber"),
		}

		if req.Postcode == "" || req.HouseNumber == "" {
			writeResponse(w, http.StatusBadRequest, Response{
				Status:       "error",
				ErrorMessage: "Postcode and street number are required",
			})
			return
		}

		matches := f.Match(req)
		zap.L().Debug("fixture: lookup",
			zap.String("postcode", req.Postcode),
			zap.String("house_number", req.HouseNumber),
			zap.Int("matches", len(matches)),
		)
		if len(matches) == 0 {
			writeResponse(w, http.StatusOK, Response{
				Status:       "error",
				ErrorMessage: "No results found",
			})
			return
		}

		writeResponse(w, http.StatusOK, Response{Status: StatusOK, Details: matches})
	})
	return r
}

func writeResponse(w http.ResponseWriter, code int, resp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		zap.L().Warn("fixture: encode response", zap.Error(err))
	}
}
