package commands

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/l3aro/go-calculadora/pkg/calculator"
	"github.com/spf13/cobra"
)

var promptCmd = &cobra.Command{
	Use:   "prompt",
	Short: "Enter an operation interactively",
	Long: `Asks for an operation and two integers, then prints the result.
Repeats until you choose to stop.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		noDaemon, _ := cmd.Flags().GetBool("no-daemon")
		return runPrompt(cmd, noDaemon)
	},
}

func init() {
	promptCmd.Flags().Bool("no-daemon", false, "Compute directly without the daemon")
}

// validateInt accepts any value strconv.Atoi parses
func validateInt(s string) error {
	if _, err := strconv.Atoi(strings.TrimSpace(s)); err != nil {
		return fmt.Errorf("enter a whole number")
	}
	return nil
}

// operationForm asks for the operation and both operands
func operationForm(op *string, a, b *string) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Operation").
				Options(
					huh.NewOption("Add (a + b)", string(calculator.OpAdd)),
					huh.NewOption("Divide (a / b)", string(calculator.OpDivide)),
				).
				Value(op),
			huh.NewInput().
				Title("a").
				Placeholder("0").
				Validate(validateInt).
				Value(a),
			huh.NewInput().
				Title("b").
				Placeholder("0").
				Validate(validateInt).
				Value(b),
		),
	)
}

func runPrompt(cmd *cobra.Command, noDaemon bool) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	router := newRouter(cfg, noDaemon)

	for {
		var opChoice, aText, bText string
		if err := operationForm(&opChoice, &aText, &bText).Run(); err != nil {
			return fmt.Errorf("interactive prompt failed: %w", err)
		}

		op, err := calculator.ParseOp(opChoice)
		if err != nil {
			return err
		}
		a, b, err := parseOperands([]string{strings.TrimSpace(aText), strings.TrimSpace(bText)})
		if err != nil {
			return err
		}

		out, err := router.Compute(cmd.Context(), op, a, b)
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "%d %s %d: %v\n", a, op.Symbol(), b, err)
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "%d %s %d = %d\n", a, op.Symbol(), b, out.Value)
		}

		again := true
		form := huh.NewForm(
			huh.NewGroup(
				huh.NewConfirm().
					Title("Another operation?").
					Affirmative("Yes").
					Negative("No").
					Value(&again),
			),
		)
		if err := form.Run(); err != nil {
			return fmt.Errorf("interactive prompt failed: %w", err)
		}
		if !again {
			return nil
		}
	}
}
