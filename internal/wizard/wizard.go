// Package wizard provides the interactive form for pinning a custom run
// selection for one model.
package wizard

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/charmbracelet/huh"
	"golang.org/x/term"

	"github.com/evalview/evalview/internal/models"
)

// RunSelection holds the fields collected during the interactive picker.
type RunSelection struct {
	Model     string
	FilePaths []string
}

// PickRuns runs an interactive huh form that lets the user pick a model
// and pin an ordered subset of its runs. runsByModel maps model name to
// its available runs, newest first; k caps how many runs may be picked.
func PickRuns(in io.Reader, out io.Writer, runsByModel map[string][]models.RunRef, k int) (*RunSelection, error) {
	if len(runsByModel) == 0 {
		return nil, fmt.Errorf("no runs available to pick from")
	}

	names := sortedModels(runsByModel)
	modelOptions := make([]huh.Option[string], 0, len(names))
	for _, model := range names {
		modelOptions = append(modelOptions, huh.NewOption(model, model))
	}
	var model string
	modelForm := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Model").
				Description("Whose runs do you want to pin?").
				Options(modelOptions...).
				Value(&model),
		),
	).WithInput(in).WithOutput(out)
	applyAccessible(modelForm, in)

	if err := modelForm.Run(); err != nil {
		return nil, fmt.Errorf("run picker failed: %w", err)
	}

	runs := runsByModel[model]
	runOptions := make([]huh.Option[string], 0, len(runs))
	for _, r := range runs {
		runOptions = append(runOptions, huh.NewOption(runLabel(r), r.FilePath))
	}

	var picked []string
	runForm := huh.NewForm(
		huh.NewGroup(
			huh.NewMultiSelect[string]().
				Title(fmt.Sprintf("Runs for %s", model)).
				Description(fmt.Sprintf("Pick up to %d runs; order is preserved", k)).
				Options(runOptions...).
				Limit(k).
				Value(&picked),
		),
	).WithInput(in).WithOutput(out)
	applyAccessible(runForm, in)

	if err := runForm.Run(); err != nil {
		return nil, fmt.Errorf("run picker failed: %w", err)
	}
	if len(picked) == 0 {
		return nil, fmt.Errorf("no runs selected")
	}

	return &RunSelection{Model: model, FilePaths: picked}, nil
}

// sortedModels returns the model names in a stable order so the picker
// lists them deterministically.
func sortedModels(runsByModel map[string][]models.RunRef) []string {
	names := make([]string, 0, len(runsByModel))
	for model := range runsByModel {
		names = append(names, model)
	}
	sort.Strings(names)
	return names
}

// runLabel formats one run as a picker entry.
func runLabel(r models.RunRef) string {
	return fmt.Sprintf("%s  (%s)", r.RunName, r.Timestamp.Format("2006-01-02 15:04"))
}

// applyAccessible switches to accessible mode for non-TTY input
// (e.g. tests, piped input).
func applyAccessible(form *huh.Form, in io.Reader) {
	if f, ok := in.(*os.File); !ok || !term.IsTerminal(int(f.Fd())) {
		form.WithAccessible(true)
	}
}
