package ontology

import (
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/biohub/subindex/errs"
)

// connectTimeout/readTimeout are the OWL download timeouts named in spec §6
// (10s connect, 120s read).
const (
	connectTimeout = 10 * time.Second
	readTimeout    = 120 * time.Second
)

// Loader describes where the OWL document lives: a local filesystem path
// that is preferred when present, falling back to a download from URL.
// IgnoredClasses names IRIs stripped from the built model (spec §4.3 step
// 4).
type Loader struct {
	Path           string
	URL            string
	IgnoredClasses []string
	HTTPClient     *http.Client
}

func (l Loader) client() *http.Client {
	if l.HTTPClient != nil {
		return l.HTTPClient
	}
	dialer := &net.Dialer{Timeout: connectTimeout}
	return &http.Client{
		Timeout: connectTimeout + readTimeout,
		Transport: &http.Transport{
			DialContext: dialer.DialContext,
		},
	}
}

// fetch obtains the raw OWL document: the local path if it exists, else a
// download from URL. A partially written download is removed on failure
// (spec §6 "partial downloads are removed on failure").
func (l Loader) fetch() ([]byte, error) {
	if l.Path != "" {
		if raw, err := os.ReadFile(l.Path); err == nil {
			return raw, nil
		}
	}
	if l.URL == "" {
		return nil, errs.NewConfigError("ontology source", fmt.Errorf("no local OWL file at %q and no download URL configured", l.Path))
	}
	return l.download()
}

func (l Loader) download() ([]byte, error) {
	resp, err := l.client().Get(l.URL)
	if err != nil {
		return nil, errs.NewConfigError("ontology download", fmt.Errorf("fetching %s: %w (remediation: verify network access and the configured ontology URL)", l.URL, err))
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, errs.NewConfigError("ontology download", fmt.Errorf("fetching %s: unexpected status %d", l.URL, resp.StatusCode))
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		// A partial read leaves nothing on disk to clean up here — this
		// loader never stages the download to a temp file, it buffers in
		// memory, so failure simply discards the buffer.
		return nil, errs.NewConfigError("ontology download", fmt.Errorf("reading body from %s: %w", l.URL, err))
	}

	if l.Path != "" {
		if err := os.WriteFile(l.Path, raw, 0o644); err != nil {
			_ = os.Remove(l.Path)
			return nil, errs.NewConfigError("ontology download", fmt.Errorf("caching OWL file at %s: %w", l.Path, err))
		}
	}
	return raw, nil
}

// Resolver serves ontology queries against the currently-loaded Model. The
// model pointer is swapped atomically on (re)build; readers never lock
// (spec §5 "the OntologyModel ... is immutable-after-build; readers need no
// locking").
type Resolver struct {
	loader Loader
	model  atomic.Pointer[Model]
	mu     sync.Mutex // guards the first, lazy load only
}

// NewResolver constructs a resolver that has not yet loaded its model; the
// first call through ensureLoaded performs the lazy, double-checked load
// (spec §4.3 "loaded once at startup (lazy, thread-safe, double-checked)").
func NewResolver(loader Loader) *Resolver {
	return &Resolver{loader: loader}
}

func (r *Resolver) ensureLoaded() (*Model, error) {
	if m := r.model.Load(); m != nil {
		return m, nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if m := r.model.Load(); m != nil {
		return m, nil
	}
	m, err := r.build()
	if err != nil {
		return nil, err
	}
	r.model.Store(m)
	return m, nil
}

// Rebuild forces a fresh load-and-parse of the OWL source and atomically
// replaces the active model; in-flight readers keep whatever reference they
// already took (spec §4.3 "rebuild() atomically replaces the reference").
func (r *Resolver) Rebuild() error {
	m, err := r.build()
	if err != nil {
		return err
	}
	r.model.Store(m)
	return nil
}

func (r *Resolver) build() (*Model, error) {
	raw, err := r.loader.fetch()
	if err != nil {
		return nil, err
	}
	m, err := parseOWL(raw)
	if err != nil {
		return nil, errs.NewConfigError("ontology document", err)
	}
	if len(r.loader.IgnoredClasses) > 0 {
		ignored := make(map[string]bool, len(r.loader.IgnoredClasses))
		for _, id := range r.loader.IgnoredClasses {
			ignored[id] = true
		}
		stripIgnoredClasses(m, ignored)
	}
	return m, nil
}

// TermsFor, AncestorsOf, IDFor, TermFor, IsTerm, and AllTerms delegate to
// the currently loaded model, triggering the lazy load on first use.

func (r *Resolver) TermsFor(id string, flags Flag) (map[string]bool, error) {
	m, err := r.ensureLoaded()
	if err != nil {
		return nil, err
	}
	return m.TermsFor(id, flags), nil
}

func (r *Resolver) AncestorsOf(term string) ([]string, error) {
	m, err := r.ensureLoaded()
	if err != nil {
		return nil, err
	}
	return m.AncestorsOf(term), nil
}

func (r *Resolver) IDFor(term string) (string, bool, error) {
	m, err := r.ensureLoaded()
	if err != nil {
		return "", false, err
	}
	id, ok := m.IDFor(term)
	return id, ok, nil
}

func (r *Resolver) TermFor(id string) (string, bool, error) {
	m, err := r.ensureLoaded()
	if err != nil {
		return "", false, err
	}
	term, ok := m.TermFor(id)
	return term, ok, nil
}

func (r *Resolver) IsTerm(text string) (bool, error) {
	m, err := r.ensureLoaded()
	if err != nil {
		return false, err
	}
	return m.IsTerm(text), nil
}

func (r *Resolver) AltTermsFor(term string) ([]string, error) {
	m, err := r.ensureLoaded()
	if err != nil {
		return nil, err
	}
	return m.AltTermsFor(term), nil
}

func (r *Resolver) AllTerms() ([]string, error) {
	m, err := r.ensureLoaded()
	if err != nil {
		return nil, err
	}
	return m.AllTerms(), nil
}

func (r *Resolver) PrimaryTerms() ([]string, error) {
	m, err := r.ensureLoaded()
	if err != nil {
		return nil, err
	}
	return m.PrimaryTerms(), nil
}

// AltTerms satisfies termmatch.AltTermSource directly on *Resolver, so the
// term matcher (C4) can be built from a resolver without an intermediate
// adapter type. AltTermSource's signature carries no error return; a load
// failure here yields an empty map rather than surfacing the error, the
// same result an ontology with no alternative terms at all would produce.
func (r *Resolver) AltTerms() map[string][]string {
	m, err := r.ensureLoaded()
	if err != nil {
		return nil
	}
	return m.AltTermsIndex()
}
