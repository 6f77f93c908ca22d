package config

import (
	"github.com/xllconnector/xll-sdk/go/domain/entities"
)

// GetString extracts a string override, returning (value, found).
func GetString(o Overrides, key string) (string, bool) {
	v, ok := o[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// GetBool extracts a bool override, returning (value, found).
func GetBool(o Overrides, key string) (bool, bool) {
	v, ok := o[key]
	if !ok {
		return false, false
	}
	b, ok := v.(bool)
	return b, ok
}

// GetStringSlice extracts a []string override, returning (value, found).
func GetStringSlice(o Overrides, key string) ([]string, bool) {
	v, ok := o[key]
	if !ok {
		return nil, false
	}
	// TOML arrays are decoded as []interface{}
	arr, ok := v.([]interface{})
	if !ok {
		if s, ok := v.([]string); ok {
			return s, true
		}
		return nil, false
	}
	result := make([]string, 0, len(arr))
	for _, item := range arr {
		s, ok := item.(string)
		if !ok {
			return nil, false
		}
		result = append(result, s)
	}
	return result, true
}

// GetStringDefault extracts a string override or returns the default value.
func GetStringDefault(o Overrides, key, defaultValue string) string {
	s, ok := GetString(o, key)
	if !ok {
		return defaultValue
	}
	return s
}

// GetBoolDefault extracts a bool override or returns the default value.
func GetBoolDefault(o Overrides, key string, defaultValue bool) bool {
	b, ok := GetBool(o, key)
	if !ok {
		return defaultValue
	}
	return b
}

// Apply overlays o onto d. Recognised keys are "description", "category",
// "shortcut", "help_topic", "volatile", "thread_safe", "suppress_wizard" and
// "arg_help" (a list matched to arguments by position). Unknown keys are
// ignored.
func Apply(d *entities.FunctionDescriptor, o Overrides) {
	if len(o) == 0 {
		return
	}
	d.Description = GetStringDefault(o, "description", d.Description)
	d.Category = GetStringDefault(o, "category", d.Category)
	d.Shortcut = GetStringDefault(o, "shortcut", d.Shortcut)
	d.HelpTopic = GetStringDefault(o, "help_topic", d.HelpTopic)
	d.Attributes.Volatile = GetBoolDefault(o, "volatile", d.Attributes.Volatile)
	d.Attributes.ThreadSafe = GetBoolDefault(o, "thread_safe", d.Attributes.ThreadSafe)
	d.Attributes.WizardSuppressed = GetBoolDefault(o, "suppress_wizard", d.Attributes.WizardSuppressed)

	if help, ok := GetStringSlice(o, "arg_help"); ok {
		for i := range d.Args {
			if i < len(help) {
				d.Args[i].Description = help[i]
			}
		}
	}
}
