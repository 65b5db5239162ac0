package codegen

import (
	"fmt"
	"strings"
	"text/template"
	"time"

	"fuelgauge-go/x/conv"
)

var funcMap = template.FuncMap{
	"quote":    func(s string) string { return fmt.Sprintf("%q", s) },
	"hex":      func(v uint16) string { return conv.HexString(uint32(v), 2) },
	"duration": durationExpr,
}

var templates = template.Must(template.New("").Funcs(funcMap).Parse(
	fileTmpl +
		newComponentTmpl +
		registerComponentTmpl +
		registerI2CTmpl +
		newSensorTmpl +
		attachSensorTmpl,
))

func renderTemplate(b *strings.Builder, name string, data any) error {
	if err := templates.ExecuteTemplate(b, name, data); err != nil {
		return fmt.Errorf("template %s: %w", name, err)
	}
	return nil
}

// durationExpr renders d as a Go expression in the largest whole unit.
func durationExpr(d time.Duration) string {
	units := []struct {
		d    time.Duration
		name string
	}{
		{time.Hour, "time.Hour"},
		{time.Minute, "time.Minute"},
		{time.Second, "time.Second"},
		{time.Millisecond, "time.Millisecond"},
	}
	if d == 0 {
		return "0"
	}
	for _, u := range units {
		if d%u.d == 0 {
			return fmt.Sprintf("%d * %s", d/u.d, u.name)
		}
	}
	return fmt.Sprintf("time.Duration(%d)", int64(d))
}

// --- Template data types ---

type fileData struct {
	Generator string
	Source    string
	Package   string
	Imports   []importData
	Body      string
}

type importData struct {
	Alias string
	Path  string
}

type componentData struct {
	Var         string
	ID          string
	Pkg         string
	Constructor string
	Every       time.Duration
	Bus         string
	Addr        uint16
}

type sensorData struct {
	Var  string
	Spec sensorSpecData
}

// sensorSpecData mirrors core.SensorSpec with string-typed tags so the
// template can quote them.
type sensorSpecData struct {
	ID, Name, UniqueID, Kind, Unit, DeviceClass, StateClass, Icon string
	AccuracyDecimals                                              int
	Internal, DisabledByDefault                                   bool
}

type attachData struct {
	CompVar, Setter, SensorVar string
}

// --- Templates ---

const fileTmpl = `{{define "file"}}// Code generated by {{.Generator}}. DO NOT EDIT.
{{- if .Source}}
// Source: {{.Source}}
{{- end}}

package {{.Package}}

import (
{{- range .Imports}}
	{{.Alias}} {{quote .Path}}
{{- end}}
)

// Setup creates the configured components and sensors and registers them
// with app. Call it before app.Setup.
func Setup(app *core.App) error {
{{.Body}}	return nil
}
{{end}}`

const newComponentTmpl = `{{define "new_component"}}	{{.Var}} := {{.Pkg}}.{{.Constructor}}({{quote .ID}})
{{end}}`

const registerComponentTmpl = `{{define "register_component"}}	if err := app.RegisterComponent({{.Var}}, {{duration .Every}}); err != nil {
		return fmt.Errorf("register %s: %w", {{quote .ID}}, err)
	}
{{end}}`

const registerI2CTmpl = `{{define "register_i2c_device"}}	if err := app.RegisterI2CDevice({{.Var}}, {{quote .Bus}}, {{hex .Addr}}); err != nil {
		return fmt.Errorf("register %s on %s: %w", {{quote .ID}}, {{quote .Bus}}, err)
	}
{{end}}`

const newSensorTmpl = `{{define "new_sensor"}}{{with .Spec}}	{{$.Var}}, err := app.NewSensor(core.SensorSpec{
		ID:               {{quote .ID}},
		Name:             {{quote .Name}},
{{- if .UniqueID}}
		UniqueID:         {{quote .UniqueID}},
{{- end}}
		Kind:             {{quote .Kind}},
{{- if .Unit}}
		Unit:             {{quote .Unit}},
{{- end}}
		AccuracyDecimals: {{.AccuracyDecimals}},
{{- if .DeviceClass}}
		DeviceClass:      {{quote .DeviceClass}},
{{- end}}
{{- if .StateClass}}
		StateClass:       {{quote .StateClass}},
{{- end}}
{{- if .Icon}}
		Icon:             {{quote .Icon}},
{{- end}}
{{- if .Internal}}
		Internal:         true,
{{- end}}
{{- if .DisabledByDefault}}
		DisabledByDefault: true,
{{- end}}
	})
	if err != nil {
		return fmt.Errorf("sensor %s: %w", {{quote .ID}}, err)
	}
{{end}}{{end}}`

const attachSensorTmpl = `{{define "attach_sensor"}}	{{.CompVar}}.{{.Setter}}({{.SensorVar}})
{{end}}`
