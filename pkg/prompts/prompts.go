// Package prompts renders the localized system instruction for live sessions.
package prompts

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"
	"text/template"

	"gopkg.in/yaml.v3"
)

// DefaultUserName is used when the profile has no display name.
const DefaultUserName = "Farmer"

//go:embed languages.yaml
var languagesYAML []byte

//go:embed live_instruction.tmpl
var liveInstructionText string

// Language is one supported assistant language.
type Language struct {
	Code     string `yaml:"code"`
	Name     string `yaml:"name"`
	LiveMode string `yaml:"live_mode"`
	StopLive string `yaml:"stop_live"`
}

type catalog struct {
	Default   string     `yaml:"default"`
	Languages []Language `yaml:"languages"`
}

var (
	loadOnce sync.Once
	loaded   catalog
	liveTmpl *template.Template
	loadErr  error
)

func load() error {
	loadOnce.Do(func() {
		if err := yaml.Unmarshal(languagesYAML, &loaded); err != nil {
			loadErr = fmt.Errorf("failed to parse languages: %w", err)
			return
		}
		if len(loaded.Languages) == 0 {
			loadErr = fmt.Errorf("no languages configured")
			return
		}
		liveTmpl, loadErr = template.New("live").Option("missingkey=error").Parse(liveInstructionText)
	})
	return loadErr
}

// Languages returns the supported languages in display order.
func Languages() []Language {
	if load() != nil {
		return nil
	}
	out := make([]Language, len(loaded.Languages))
	copy(out, loaded.Languages)
	return out
}

// Lookup returns the language for code. Unknown codes fall back to the
// default language with ok=false.
func Lookup(code string) (Language, bool) {
	if load() != nil {
		return Language{Code: code, Name: code}, false
	}
	code = strings.ToLower(strings.TrimSpace(code))
	var def Language
	for _, l := range loaded.Languages {
		if l.Code == code {
			return l, true
		}
		if l.Code == loaded.Default {
			def = l
		}
	}
	return def, false
}

// Supported reports whether code names a configured language.
func Supported(code string) bool {
	_, ok := Lookup(code)
	return ok
}

// LiveInstruction renders the system instruction for a session.
func LiveInstruction(lang, userName string) (string, error) {
	if err := load(); err != nil {
		return "", err
	}
	l, _ := Lookup(lang)
	if strings.TrimSpace(userName) == "" {
		userName = DefaultUserName
	}
	var b strings.Builder
	err := liveTmpl.Execute(&b, struct {
		UserName string
		Language string
	}{UserName: userName, Language: l.Name})
	if err != nil {
		return "", fmt.Errorf("render live instruction: %w", err)
	}
	return strings.TrimSpace(b.String()), nil
}
