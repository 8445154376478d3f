package rating

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"
)

// DefaultSubmitKey is the key code (space bar) that submits when no other key
// is configured.
const DefaultSubmitKey = 32

// Params is the parameter set a host passes when it starts a trial.
type Params struct {
	SubmitKey        int      `json:"submitKey" yaml:"submitKey"`
	SubmitButton     bool     `json:"submitButton" yaml:"submitButton"`
	RightClickSubmit bool     `json:"rightClickSubmit" yaml:"rightClickSubmit"`
	AllowBlank       bool     `json:"allowBlank" yaml:"allowBlank"`
	AllowNone        bool     `json:"allowNone" yaml:"allowNone"`
	LogCommits       bool     `json:"logCommits" yaml:"logCommits"`
	DefaultNone      bool     `json:"defaultNone" yaml:"defaultNone"`
	ShowShadows      bool     `json:"showShadows" yaml:"showShadows"`
	SubmitTimeout    float64  `json:"submitTimeout" yaml:"submitTimeout"` // seconds; <= 0 disables
	Items            []string `json:"items" yaml:"items"`
	TopMsg           string   `json:"topMsg,omitempty" yaml:"topMsg"`
	BottomMsg        string   `json:"bottomMsg,omitempty" yaml:"bottomMsg"`
}

// DefaultParams returns the documented defaults with no items.
func DefaultParams() Params {
	return Params{
		SubmitKey:     DefaultSubmitKey,
		AllowNone:     true,
		SubmitTimeout: -1,
	}
}

// rawParams mirrors Params with pointers so omitted options can be told
// apart from explicit zero values.
type rawParams struct {
	SubmitKey        *int     `json:"submitKey" yaml:"submitKey"`
	SubmitButton     *bool    `json:"submitButton" yaml:"submitButton"`
	RightClickSubmit *bool    `json:"rightClickSubmit" yaml:"rightClickSubmit"`
	AllowBlank       *bool    `json:"allowBlank" yaml:"allowBlank"`
	AllowNone        *bool    `json:"allowNone" yaml:"allowNone"`
	LogCommits       *bool    `json:"logCommits" yaml:"logCommits"`
	DefaultNone      *bool    `json:"defaultNone" yaml:"defaultNone"`
	ShowShadows      *bool    `json:"showShadows" yaml:"showShadows"`
	SubmitTimeout    *float64 `json:"submitTimeout" yaml:"submitTimeout"`
	Items            []string `json:"items" yaml:"items"`
	TopMsg           *string  `json:"topMsg" yaml:"topMsg"`
	BottomMsg        *string  `json:"bottomMsg" yaml:"bottomMsg"`
}

// overlay copies every option present in raw over p.
func (raw rawParams) overlay(p Params) Params {
	if raw.SubmitKey != nil {
		p.SubmitKey = *raw.SubmitKey
	}
	if raw.SubmitButton != nil {
		p.SubmitButton = *raw.SubmitButton
	}
	if raw.RightClickSubmit != nil {
		p.RightClickSubmit = *raw.RightClickSubmit
	}
	if raw.AllowBlank != nil {
		p.AllowBlank = *raw.AllowBlank
	}
	if raw.AllowNone != nil {
		p.AllowNone = *raw.AllowNone
	}
	if raw.LogCommits != nil {
		p.LogCommits = *raw.LogCommits
	}
	if raw.DefaultNone != nil {
		p.DefaultNone = *raw.DefaultNone
	}
	if raw.ShowShadows != nil {
		p.ShowShadows = *raw.ShowShadows
	}
	if raw.SubmitTimeout != nil {
		p.SubmitTimeout = *raw.SubmitTimeout
	}
	if raw.Items != nil {
		p.Items = append([]string(nil), raw.Items...)
	}
	if raw.TopMsg != nil {
		p.TopMsg = *raw.TopMsg
	}
	if raw.BottomMsg != nil {
		p.BottomMsg = *raw.BottomMsg
	}
	return p
}

// UnmarshalJSON fills omitted options with their defaults.
func (p *Params) UnmarshalJSON(b []byte) error {
	var raw rawParams
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidParams, err)
	}
	*p = raw.overlay(DefaultParams())
	return nil
}

// UnmarshalYAML fills omitted options with their defaults.
func (p *Params) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var raw rawParams
	if err := unmarshal(&raw); err != nil {
		return err
	}
	*p = raw.overlay(DefaultParams())
	return nil
}

// Merge applies the options present in the JSON document b on top of p.
// Used to override a preset with per-trial options.
func (p Params) Merge(b []byte) (Params, error) {
	if len(b) == 0 {
		return p, nil
	}
	var raw rawParams
	if err := json.Unmarshal(b, &raw); err != nil {
		return p, fmt.Errorf("%w: %v", ErrInvalidParams, err)
	}
	return raw.overlay(p), nil
}

// Validate checks the item set. Every other option has a usable default.
func (p Params) Validate() error {
	if len(p.Items) == 0 {
		return ErrInvalidItems
	}
	seen := make(map[string]struct{}, len(p.Items))
	for _, it := range p.Items {
		if strings.TrimSpace(it) == "" {
			return ErrInvalidItems
		}
		if _, dup := seen[it]; dup {
			return ErrInvalidItems
		}
		seen[it] = struct{}{}
	}
	return nil
}

// maxTimeoutSec is the longest delay a time.Duration can hold.
const maxTimeoutSec = float64(math.MaxInt64) / float64(time.Second)

// Timeout reports the auto-submit delay and whether it is enabled. NaN,
// non-positive and unrepresentably long timeouts are disabled.
func (p Params) Timeout() (time.Duration, bool) {
	if !(p.SubmitTimeout > 0) || p.SubmitTimeout >= maxTimeoutSec {
		return 0, false
	}
	return time.Duration(p.SubmitTimeout * float64(time.Second)), true
}
