// File: cmd/prompt.go
package cmd

import (
	"fmt"

	"github.com/AlecAivazis/survey/v2"

	"github.com/xkilldash9x/hometax-cli/internal/source"
)

// askOne is swapped in tests to answer prompts without a terminal.
var askOne = survey.AskOne

// chooseSheet returns preset when set, the only sheet of a single-sheet
// workbook, or the sheet the operator picks.
func chooseSheet(path, preset string) (string, error) {
	if preset != "" {
		return preset, nil
	}
	names, err := source.SheetNames(path)
	if err != nil {
		return "", err
	}
	switch len(names) {
	case 0:
		return "", fmt.Errorf("workbook %s has no sheets", path)
	case 1:
		return names[0], nil
	}

	var sheet string
	if err := askOne(&survey.Select{
		Message: "Select the sheet to read:",
		Options: names,
	}, &sheet); err != nil {
		return "", fmt.Errorf("sheet selection: %w", err)
	}
	return sheet, nil
}

func confirm(message string, def bool) (bool, error) {
	ok := def
	if err := askOne(&survey.Confirm{Message: message, Default: def}, &ok); err != nil {
		return false, err
	}
	return ok, nil
}
