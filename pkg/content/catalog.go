package content

import (
	_ "embed"
	"errors"
	"fmt"
	"sort"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalogYAML []byte

// Builtin last-resort template used when a catalog lookup misses entirely.
const (
	builtinTitle = "New Notification"
	builtinBody  = "You have a new notification"
)

type messageSpec struct {
	Title string `yaml:"title"`
	Body  string `yaml:"body"`
}

type template struct {
	Title string
	Body  string
}

type catalog struct {
	// tags is ordered with the default locale first so the matcher prefers it
	// when confidence is equal.
	tags     []language.Tag
	matcher  language.Matcher
	messages map[string]map[Event]template
	fallback string
}

// Builder renders events into Content using locale catalogs.
type Builder struct {
	catalog *catalog
}

// Option configures builder construction.
type Option func(*builderConfig)

type builderConfig struct {
	defaultLocale string
	extra         [][]byte
}

// WithDefaultLocale sets the locale used when no tag is supplied or no close
// match exists. The tag must be present in the catalog after merging.
func WithDefaultLocale(tag string) Option {
	return func(c *builderConfig) {
		if tag != "" {
			c.defaultLocale = tag
		}
	}
}

// WithCatalogData merges an additional YAML catalog over the embedded one.
// Later sources override earlier ones per event, so partial overrides work.
func WithCatalogData(data []byte) Option {
	return func(c *builderConfig) {
		if len(data) > 0 {
			c.extra = append(c.extra, data)
		}
	}
}

// New creates a Builder from the embedded catalog plus any merged sources.
func New(opts ...Option) (*Builder, error) {
	cfg := &builderConfig{defaultLocale: "en"}
	for _, opt := range opts {
		opt(cfg)
	}

	sources := append([][]byte{defaultCatalogYAML}, cfg.extra...)
	cat, err := newCatalog(cfg.defaultLocale, sources...)
	if err != nil {
		return nil, err
	}
	return &Builder{catalog: cat}, nil
}

// MustNew is New that panics on error. Safe to call with no options since the
// embedded catalog is always valid.
func MustNew(opts ...Option) *Builder {
	b, err := New(opts...)
	if err != nil {
		panic(err)
	}
	return b
}

// NewBuilder is an alias for MustNew kept for ergonomic call sites that only
// need the embedded catalog.
func NewBuilder(opts ...Option) *Builder {
	return MustNew(opts...)
}

// Locales reports the catalog's locale tags, default first.
func (b *Builder) Locales() []string {
	out := make([]string, len(b.catalog.tags))
	for i, tag := range b.catalog.tags {
		out[i] = tag.String()
	}
	return out
}

func newCatalog(defaultLocale string, sources ...[]byte) (*catalog, error) {
	defTag, err := language.Parse(defaultLocale)
	if err != nil {
		return nil, errors.Join(ErrInvalidLocale, err)
	}

	messages := make(map[string]map[Event]template)
	for _, src := range sources {
		parsed, err := parseCatalogData(src)
		if err != nil {
			return nil, err
		}
		for locale, events := range parsed {
			dst, ok := messages[locale]
			if !ok {
				dst = make(map[Event]template, len(events))
				messages[locale] = dst
			}
			for event, tpl := range events {
				dst[event] = tpl
			}
		}
	}

	fallback := defTag.String()
	if _, ok := messages[fallback]; !ok {
		return nil, fmt.Errorf("%w: default locale %q missing from catalog", ErrInvalidCatalog, fallback)
	}

	// Default tag leads; remaining tags follow in deterministic order.
	rest := make([]string, 0, len(messages))
	for locale := range messages {
		if locale != fallback {
			rest = append(rest, locale)
		}
	}
	sort.Strings(rest)

	tags := make([]language.Tag, 0, len(messages))
	tags = append(tags, defTag)
	for _, locale := range rest {
		tags = append(tags, language.MustParse(locale))
	}

	return &catalog{
		tags:     tags,
		matcher:  language.NewMatcher(tags),
		messages: messages,
		fallback: fallback,
	}, nil
}

func parseCatalogData(data []byte) (map[string]map[Event]template, error) {
	var raw map[string]map[string]messageSpec
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, errors.Join(ErrInvalidCatalog, err)
	}
	if len(raw) == 0 {
		return nil, ErrEmptyCatalog
	}

	out := make(map[string]map[Event]template, len(raw))
	for locale, events := range raw {
		tag, err := language.Parse(locale)
		if err != nil {
			return nil, errors.Join(ErrInvalidLocale, fmt.Errorf("locale %q: %w", locale, err))
		}
		key := tag.String()
		dst, ok := out[key]
		if !ok {
			dst = make(map[Event]template, len(events))
			out[key] = dst
		}
		for name, spec := range events {
			dst[Event(name)] = template{Title: spec.Title, Body: spec.Body}
		}
	}
	return out, nil
}

// lookup resolves the template for an event in the best matching locale.
// Misses cascade: event in matched locale, event in the default locale,
// generic in matched locale, generic in the default locale, builtin.
func (c *catalog) lookup(locale string, event Event) template {
	matched := c.fallback
	if locale != "" && locale != c.fallback {
		if tag, err := language.Parse(locale); err == nil {
			_, idx, conf := c.matcher.Match(tag)
			if conf > language.No && idx < len(c.tags) {
				matched = c.tags[idx].String()
			}
		}
	}

	if tpl, ok := c.messages[matched][event]; ok {
		return tpl
	}
	if tpl, ok := c.messages[c.fallback][event]; ok {
		return tpl
	}
	if tpl, ok := c.messages[matched][EventGeneric]; ok {
		return tpl
	}
	if tpl, ok := c.messages[c.fallback][EventGeneric]; ok {
		return tpl
	}
	return template{Title: builtinTitle, Body: builtinBody}
}
