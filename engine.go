package vellum

import (
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/romecore/vellum/internal"
)

// Engine parses template sources and renders templates against host
// data. It is safe for concurrent use: parsing builds a fresh Library
// per call, and rendering only reads from it.
type Engine struct {
	cfg   *engineConfig
	funcs *internal.FunctionSet
}

// New builds an Engine with the given options applied over the
// defaults (engineConfig, options.go).
func New(opts ...Option) *Engine {
	cfg := defaultEngineConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.logger == nil {
		cfg.logger = zap.NewNop()
	}
	return &Engine{cfg: cfg, funcs: internal.NewFunctionSet()}
}

// Parse parses src into a new Library holding one Template per
// `@template`/`@messages` declaration (spec section 5). Templates
// parsed this way resolve `@render` first against their own Library,
// then against SharedLibrary().
func (e *Engine) Parse(src string) (*Library, error) {
	e.cfg.logger.Debug("parsing template source", zap.Int("source_bytes", len(src)))
	lib, err := internal.ParseSource(src)
	if err != nil {
		e.cfg.logger.Warn("template parse failed", zap.Error(err))
		return nil, wrapErr(err)
	}
	e.cfg.logger.Debug("template parse complete")
	return wrapLibrary(lib), nil
}

// RenderText renders tmpl as text against data (spec section 4.4).
// It fails with a TemplateKindMismatch-rooted error if tmpl is a
// `@messages` template.
func (e *Engine) RenderText(tmpl *Template, data any) (string, error) {
	ctx := e.newContext(tmpl, data)
	out, err := tmpl.Render(ctx)
	if err != nil {
		e.cfg.logger.Warn("template render failed", zap.String("template", tmpl.Name), zap.Error(err))
		return "", wrapErr(err)
	}
	return out, nil
}

// RenderMessages renders tmpl as an ordered list of {role, text}
// entries (spec section 4.6). It fails with a TemplateKindMismatch-
// rooted error if tmpl is not a `@messages` template.
func (e *Engine) RenderMessages(tmpl *Template, data any) ([]Message, error) {
	ctx := e.newContext(tmpl, data)
	msgs, err := tmpl.RenderMessages(ctx)
	if err != nil {
		e.cfg.logger.Warn("messages render failed", zap.String("template", tmpl.Name), zap.Error(err))
		return nil, wrapErr(err)
	}
	return msgs, nil
}

func (e *Engine) newContext(tmpl *Template, data any) *internal.ContextAccessor {
	lib := tmpl.Library
	if lib == nil {
		lib = e.cfg.library
	}
	root := hostRootValue(data, e.cfg.propertiesToLowercase)
	return internal.NewContextAccessor(root, tmpl.Metadata, e.funcs, lib, e.cfg.maxFrameDepth)
}

// metadataOverridesDoc is the shape of a YAML metadata sidecar: a map
// from template identifier to a flat key/value set of additional
// metadata, using the same key vocabulary `@metadata { }` blocks
// accept (identifier/lang/model/model_family and their aliases).
type metadataOverridesDoc struct {
	Templates map[string]map[string]string `yaml:"templates"`
}

// ApplyYAMLMetadataOverrides merges metadata from a YAML sidecar onto
// the templates already registered in lib, keyed by each template's
// identifier. This lets a deployment attach or correct metadata
// (language, target model) without editing template source — e.g. a
// translation pipeline dropping in `lang: de` for a localized variant
// it generated out of band.
func (e *Engine) ApplyYAMLMetadataOverrides(lib *Library, yamlSrc []byte) error {
	var doc metadataOverridesDoc
	if err := yaml.Unmarshal(yamlSrc, &doc); err != nil {
		return wrapErr(&internal.ParseError{Kind: internal.ParseErrUnexpectedToken, Expected: "valid YAML", Actual: err.Error()})
	}
	for identifier, overrides := range doc.Templates {
		targets, err := lib.GetAllByIdentifier(identifier)
		if err != nil {
			e.cfg.logger.Warn("metadata override target not found", zap.String("identifier", identifier))
			continue
		}
		for key, value := range overrides {
			m, ok := internal.MetadataFromKeyValue(key, value)
			if !ok {
				e.cfg.logger.Warn("unknown metadata override key", zap.String("identifier", identifier), zap.String("key", key))
				continue
			}
			for _, t := range targets {
				t.Metadata.Add(m)
			}
		}
	}
	return nil
}
