package codegen

import (
	"fmt"
	"go/token"
	"sort"
	"strings"
	"time"
	"unicode"

	"golang.org/x/tools/imports"

	"fuelgauge-go/errcode"
	"fuelgauge-go/services/hal/core"
	"fuelgauge-go/types"
)

const coreImportPath = "fuelgauge-go/services/hal/core"

// EmitterOptions configure the generated file.
type EmitterOptions struct {
	Package   string // package clause of the generated file
	Generator string // named in the "Code generated" header
	Source    string // optional config path noted in the header
}

// Compile-time check.
var _ core.Target = (*Emitter)(nil)

type emittedComp struct {
	data       componentData
	info       core.PlatformInfo
	registered bool
}

// Emitter is a Target that renders each call as Go source. Source returns a
// file declaring func Setup(app *core.App) error.
type Emitter struct {
	opts EmitterOptions

	body      strings.Builder
	imports   map[string]string // path -> alias
	comps     map[string]*emittedComp
	compOrder []string
	sensors   map[string]string // sensor id -> variable
	attached  map[string]bool   // sensor id
	names     map[string]bool   // identifiers in use
}

func NewEmitter(opts EmitterOptions) *Emitter {
	if opts.Package == "" {
		opts.Package = "main"
	}
	if opts.Generator == "" {
		opts.Generator = "max17048gen"
	}
	e := &Emitter{
		opts:     opts,
		imports:  map[string]string{coreImportPath: "core"},
		comps:    map[string]*emittedComp{},
		sensors:  map[string]string{},
		attached: map[string]bool{},
		names:    map[string]bool{},
	}
	for _, n := range []string{"app", "err", "core", "fmt", "time", "Setup"} {
		e.names[n] = true
	}
	return e
}

func (e *Emitter) NewComponent(platform, id string) error {
	p, ok := core.LookupPlatform(platform)
	if !ok {
		return errcode.New(errcode.UnknownPlatform, string(OpNewComponent), platform)
	}
	if _, dup := e.comps[id]; dup {
		return errcode.New(errcode.DuplicateID, string(OpNewComponent), id)
	}
	if _, dup := e.sensors[id]; dup {
		return errcode.New(errcode.DuplicateID, string(OpNewComponent), id)
	}
	info := p.Info()
	alias, err := e.importAlias(info)
	if err != nil {
		return err
	}
	c := &emittedComp{
		data: componentData{
			Var:         e.varName(id),
			ID:          id,
			Pkg:         alias,
			Constructor: info.Constructor,
		},
		info: info,
	}
	e.comps[id] = c
	e.compOrder = append(e.compOrder, id)
	return renderTemplate(&e.body, "new_component", c.data)
}

func (e *Emitter) RegisterComponent(id string, every time.Duration) error {
	c, err := e.comp(OpRegisterComponent, id)
	if err != nil {
		return err
	}
	c.data.Every = every
	c.registered = true
	return renderTemplate(&e.body, "register_component", c.data)
}

func (e *Emitter) RegisterI2CDevice(id, bus string, addr uint16) error {
	c, err := e.comp(OpRegisterI2CDevice, id)
	if err != nil {
		return err
	}
	c.data.Bus, c.data.Addr = bus, addr
	return renderTemplate(&e.body, "register_i2c_device", c.data)
}

func (e *Emitter) NewSensor(spec core.SensorSpec) error {
	if _, dup := e.sensors[spec.ID]; dup {
		return errcode.New(errcode.DuplicateID, string(OpNewSensor), spec.ID)
	}
	if _, dup := e.comps[spec.ID]; dup {
		return errcode.New(errcode.DuplicateID, string(OpNewSensor), spec.ID)
	}
	v := e.varName(spec.ID)
	e.sensors[spec.ID] = v
	return renderTemplate(&e.body, "new_sensor", sensorData{
		Var: v,
		Spec: sensorSpecData{
			ID:                spec.ID,
			Name:              spec.Name,
			UniqueID:          spec.UniqueID,
			Kind:              string(spec.Kind),
			Unit:              string(spec.Unit),
			DeviceClass:       string(spec.DeviceClass),
			StateClass:        string(spec.StateClass),
			Icon:              spec.Icon,
			AccuracyDecimals:  spec.AccuracyDecimals,
			Internal:          spec.Internal,
			DisabledByDefault: spec.DisabledByDefault,
		},
	})
}

func (e *Emitter) AttachSensor(componentID string, kind types.Kind, sensorID string) error {
	c, err := e.comp(OpAttachSensor, componentID)
	if err != nil {
		return err
	}
	sv, ok := e.sensors[sensorID]
	if !ok {
		return errcode.New(errcode.UnknownComponent, string(OpAttachSensor), sensorID)
	}
	setter := c.info.Setters[kind]
	if setter == "" {
		return errcode.New(errcode.Unsupported, string(OpAttachSensor), componentID+": "+string(kind))
	}
	e.attached[sensorID] = true
	return renderTemplate(&e.body, "attach_sensor", attachData{
		CompVar:   c.data.Var,
		Setter:    setter,
		SensorVar: sv,
	})
}

// Source renders the file and formats it with goimports. On a formatting
// error the unformatted source is returned with the error.
func (e *Emitter) Source() ([]byte, error) {
	for _, id := range e.compOrder {
		if !e.comps[id].registered {
			return nil, errcode.New(errcode.InvalidParams, "emit", id+" created but never registered")
		}
	}

	body := e.body.String()
	var unused []string
	for id, v := range e.sensors {
		if !e.attached[id] {
			unused = append(unused, "\t_ = "+v+"\n")
		}
	}
	sort.Strings(unused)
	body += strings.Join(unused, "")

	fd := fileData{
		Generator: e.opts.Generator,
		Source:    e.opts.Source,
		Package:   e.opts.Package,
		Body:      body,
	}
	if len(e.comps) > 0 || len(e.sensors) > 0 {
		fd.Imports = append(fd.Imports, importData{Path: "fmt"})
	}
	if e.usesTime() {
		fd.Imports = append(fd.Imports, importData{Path: "time"})
	}
	paths := make([]string, 0, len(e.imports))
	for p := range e.imports {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	for _, p := range paths {
		fd.Imports = append(fd.Imports, importData{Alias: e.imports[p], Path: p})
	}

	var b strings.Builder
	if err := renderTemplate(&b, "file", fd); err != nil {
		return nil, err
	}
	src := []byte(b.String())
	formatted, err := imports.Process(e.opts.Package+"_gen.go", src, nil)
	if err != nil {
		return src, fmt.Errorf("goimports: %w", err)
	}
	return formatted, nil
}

func (e *Emitter) usesTime() bool {
	for _, c := range e.comps {
		if c.data.Every != 0 {
			return true
		}
	}
	return false
}

func (e *Emitter) comp(op Op, id string) (*emittedComp, error) {
	c, ok := e.comps[id]
	if !ok {
		return nil, errcode.New(errcode.UnknownComponent, string(op), id)
	}
	return c, nil
}

// importAlias reserves the platform's package alias for its import path.
func (e *Emitter) importAlias(info core.PlatformInfo) (string, error) {
	if info.ImportPath == "" || info.Constructor == "" || !token.IsIdentifier(info.Package) {
		return "", errcode.New(errcode.Unsupported, "emit", "platform has no code generation info")
	}
	if alias, ok := e.imports[info.ImportPath]; ok {
		return alias, nil
	}
	for path, alias := range e.imports {
		if alias == info.Package && path != info.ImportPath {
			return "", errcode.New(errcode.DuplicateID, "emit", "import alias "+alias)
		}
	}
	if e.names[info.Package] {
		return "", errcode.New(errcode.DuplicateID, "emit", "package alias "+info.Package+" clashes with a variable")
	}
	e.imports[info.ImportPath] = info.Package
	e.names[info.Package] = true
	return info.Package, nil
}

// varName derives a unique Go identifier from id.
func (e *Emitter) varName(id string) string {
	var b strings.Builder
	for i, r := range id {
		switch {
		case r == '_' || unicode.IsLetter(r):
			b.WriteRune(r)
		case unicode.IsDigit(r):
			if i == 0 {
				b.WriteByte('_')
			}
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	name := b.String()
	if name == "" || name == "_" {
		name = "v"
	}
	for e.names[name] || token.IsKeyword(name) {
		name += "_"
	}
	e.names[name] = true
	return name
}
