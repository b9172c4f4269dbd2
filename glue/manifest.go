package glue

import (
	"encoding/json"
	"os"
	"strings"

	"go.bytecodealliance.org/wit"

	"github.com/hexbound/workerboot/errors"
	"github.com/hexbound/workerboot/scope"
)

// EntryExport is the conventional name of the worker-side entry function.
const EntryExport = "web_main"

// Manifest is the generated bindings descriptor that accompanies a compiled
// payload. It is the contract the bindings generator emits: which export is
// the entry point, which globals must exist when the bindings evaluate, and
// which host imports the payload expects.
type Manifest struct {
	// Name identifies the module, informational only.
	Name string `json:"name"`

	// Payload is the relative locator of the compiled binary module.
	Payload string `json:"payload"`

	// Entry is the exported entry function name. Defaults to EntryExport.
	Entry string `json:"entry"`

	// EntrySignature declares the entry's WIT-style parameter and result
	// types. The entry receives exactly one argument: the scope handle.
	EntrySignature Signature `json:"entry_signature"`

	// Probes lists global names whose existence the bindings check at
	// evaluation time.
	Probes []string `json:"probes"`

	// Imports declares the host functions the payload imports. The loader
	// instantiates no-op stubs for each before the payload.
	Imports []ImportModule `json:"imports"`

	entryParams  []wit.Type
	entryResults []wit.Type
}

// Signature declares a function's types using WIT type names.
type Signature struct {
	Params  []string `json:"params"`
	Results []string `json:"results"`
}

// ImportModule declares one host module namespace the payload imports.
type ImportModule struct {
	Module    string           `json:"module"`
	Functions []ImportFunction `json:"functions"`
}

// ImportFunction declares one imported host function.
type ImportFunction struct {
	Name      string    `json:"name"`
	Signature Signature `json:"signature"`

	params  []wit.Type
	results []wit.Type
}

// Load reads and parses a bindings manifest. A missing or unparseable
// manifest is fatal to worker startup; no recovery is attempted here.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.ParseFailed("read bindings manifest", err)
	}
	return Parse(data)
}

// Parse decodes manifest bytes and validates the declared types.
func Parse(data []byte) (*Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, errors.ParseFailed("decode bindings manifest", err)
	}
	if err := m.validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

func (m *Manifest) validate() error {
	if m.Entry == "" {
		m.Entry = EntryExport
	}

	// Entry takes the scope handle as its sole positional argument.
	params := m.EntrySignature.Params
	if len(params) == 0 {
		params = []string{"u32"}
	}
	if len(params) != 1 {
		return errors.InvalidInput(errors.PhaseParse,
			"entry signature must take exactly one argument (the scope handle)")
	}

	var err error
	m.entryParams, err = parseTypes(params)
	if err != nil {
		return err
	}
	m.entryResults, err = parseTypes(m.EntrySignature.Results)
	if err != nil {
		return err
	}
	if len(m.entryResults) != 0 {
		return errors.InvalidInput(errors.PhaseParse,
			"entry signature must not return values")
	}

	for i := range m.Imports {
		im := &m.Imports[i]
		if im.Module == "" {
			return errors.InvalidInput(errors.PhaseParse, "import module name cannot be empty")
		}
		for j := range im.Functions {
			fn := &im.Functions[j]
			if fn.Name == "" {
				return errors.InvalidInput(errors.PhaseParse, "import function name cannot be empty")
			}
			fn.params, err = parseTypes(fn.Signature.Params)
			if err != nil {
				return err
			}
			fn.results, err = parseTypes(fn.Signature.Results)
			if err != nil {
				return err
			}
		}
	}

	return nil
}

func parseTypes(names []string) ([]wit.Type, error) {
	types := make([]wit.Type, 0, len(names))
	for _, name := range names {
		t, err := wit.ParseType(strings.TrimSpace(name))
		if err != nil {
			return nil, errors.ParseFailed("parse WIT type "+name, err)
		}
		types = append(types, t)
	}
	return types, nil
}

// EntryParams returns the parsed entry parameter types.
func (m *Manifest) EntryParams() []wit.Type {
	return m.entryParams
}

// Params returns the parsed parameter types of an import declaration.
func (f *ImportFunction) Params() []wit.Type {
	return f.params
}

// Results returns the parsed result types of an import declaration.
func (f *ImportFunction) Results() []wit.Type {
	return f.results
}

// Evaluate runs the manifest's capability probes against a scope, the
// equivalent of the glue script's top-level evaluation. It must run after the
// polyfill installs and before the payload loads. A failed probe surfaces
// exactly like a bindings evaluation failure.
func (m *Manifest) Evaluate(s *scope.Scope) (*Bindings, error) {
	for _, name := range m.Probes {
		if !s.Has(name) {
			return nil, errors.ProbeFailed(name)
		}
	}
	return &Bindings{manifest: m, scope: s}, nil
}
