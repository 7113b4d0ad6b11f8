// Package prompt provides the interactive terminal prompts used by
// `ecuserver config init --interactive`.
package prompt

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/manifoldco/promptui"

	"github.com/marmos91/ecuserver/internal/bytesize"
)

// ErrAborted is returned when the user aborts a prompt (Ctrl+C).
var ErrAborted = errors.New("aborted")

// IsAborted returns true if the error indicates the user aborted (Ctrl+C).
func IsAborted(err error) bool {
	return errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrAbort) || errors.Is(err, ErrAborted)
}

// wrapError converts promptui interrupt/abort errors to ErrAborted for consistent handling.
func wrapError(err error) error {
	if err == nil {
		return nil
	}
	if IsAborted(err) {
		return ErrAborted
	}
	return err
}

// Input prompts for free text with an optional validator.
func Input(label, defaultValue string, validate func(string) error) (string, error) {
	p := promptui.Prompt{
		Label:    label,
		Default:  defaultValue,
		Validate: validate,
	}

	result, err := p.Run()
	return result, wrapError(err)
}

// InputPort prompts for a TCP port.
func InputPort(label string, defaultValue int) (int, error) {
	result, err := Input(label, strconv.Itoa(defaultValue), ValidatePort)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(result)
}

// InputSize prompts for a byte size such as "8" or "4KiB", between one byte
// and max.
func InputSize(label string, defaultValue, max bytesize.ByteSize) (bytesize.ByteSize, error) {
	result, err := Input(label, defaultValue.String(), func(s string) error {
		return ValidateSize(s, max)
	})
	if err != nil {
		return 0, err
	}
	return bytesize.Parse(result)
}

// InputCount prompts for a non-negative integer.
func InputCount(label string, defaultValue int) (int, error) {
	result, err := Input(label, strconv.Itoa(defaultValue), ValidateCount)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(result)
}

// InputDuration prompts for a Go duration such as "30s".
func InputDuration(label string, defaultValue time.Duration) (time.Duration, error) {
	result, err := Input(label, defaultValue.String(), ValidateDuration)
	if err != nil {
		return 0, err
	}
	return time.ParseDuration(result)
}

// Select prompts for one of items and returns it.
func Select(label string, items []string, defaultValue string) (string, error) {
	cursor := 0
	for i, it := range items {
		if it == defaultValue {
			cursor = i
			break
		}
	}

	p := promptui.Select{
		Label:     label,
		Items:     items,
		CursorPos: cursor,
		Size:      len(items),
		Templates: &promptui.SelectTemplates{
			Label:    "{{ . }}",
			Active:   "> {{ . | cyan }}",
			Inactive: "  {{ . }}",
			Selected: "* {{ . | green }}",
		},
	}

	_, result, err := p.Run()
	return result, wrapError(err)
}

// Confirm asks a yes/no question. An empty answer returns defaultYes.
func Confirm(label string, defaultYes bool) (bool, error) {
	def := "n"
	if defaultYes {
		def = "y"
	}

	p := promptui.Prompt{
		Label:     label,
		IsConfirm: true,
		Default:   def,
	}

	_, err := p.Run()
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, promptui.ErrInterrupt):
		return false, ErrAborted
	case errors.Is(err, promptui.ErrAbort):
		// promptui reports "n" as ErrAbort.
		return false, nil
	default:
		return false, err
	}
}

// ValidatePort accepts 1-65535.
func ValidatePort(s string) error {
	port, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("must be a valid integer")
	}
	if port < 1 || port > 65535 {
		return fmt.Errorf("must be a valid port (1-65535)")
	}
	return nil
}

// ValidateSize accepts byte sizes in [1, max].
func ValidateSize(s string, max bytesize.ByteSize) error {
	n, err := bytesize.Parse(s)
	if err != nil {
		return fmt.Errorf("must be a size like 8, 512B or 4KiB")
	}
	if n < 1 || n > max {
		return fmt.Errorf("must be between 1B and %s", max)
	}
	return nil
}

// ValidateCount accepts integers >= 0.
func ValidateCount(s string) error {
	n, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("must be a valid integer")
	}
	if n < 0 {
		return fmt.Errorf("must not be negative")
	}
	return nil
}

// ValidateDuration accepts positive Go durations.
func ValidateDuration(s string) error {
	d, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("must be a duration like 30s or 1m")
	}
	if d <= 0 {
		return fmt.Errorf("must be positive")
	}
	return nil
}
