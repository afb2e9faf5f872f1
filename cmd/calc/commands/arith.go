package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/l3aro/go-calculadora/internal/log"
	"github.com/l3aro/go-calculadora/pkg/calculator"
	"github.com/l3aro/go-calculadora/pkg/protocol"
	"github.com/spf13/cobra"
)

// OperationOutput represents the JSON output of add and divide
type OperationOutput struct {
	Operation string `json:"operation"`
	A         int    `json:"a"`
	B         int    `json:"b"`
	Result    *int   `json:"result,omitempty"`
	Via       string `json:"via,omitempty"`
	Error     string `json:"error,omitempty"`
	ErrorKind string `json:"error_kind,omitempty"`
}

var addCmd = &cobra.Command{
	Use:   "add A B",
	Short: "Add two integers",
	Long: `Prints A + B. Uses the daemon when it is running, otherwise computes directly.
Results wrap around on overflow.`,
	Example: `  calc add 5 4
  calc add -- 10 -5`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runOperation(cmd, calculator.OpAdd, args)
	},
}

var divideCmd = &cobra.Command{
	Use:   "divide A B",
	Short: "Divide two integers, truncating toward zero",
	Long: `Prints A / B truncated toward zero. Fails with "division by zero" when B is 0.
Uses the daemon when it is running, otherwise computes directly.`,
	Example: `  calc divide 15 3
  calc divide -- -7 2`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runOperation(cmd, calculator.OpDivide, args)
	},
}

func init() {
	for _, c := range []*cobra.Command{addCmd, divideCmd} {
		c.Flags().BoolP("json", "j", false, "Output as JSON")
		c.Flags().Bool("no-daemon", false, "Compute directly without the daemon")
	}
}

// parseOperands converts the two positional arguments to ints
func parseOperands(args []string) (int, int, error) {
	a, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid integer %q", args[0])
	}
	b, err := strconv.Atoi(args[1])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid integer %q", args[1])
	}
	return a, b, nil
}

func runOperation(cmd *cobra.Command, op calculator.Op, args []string) error {
	a, b, err := parseOperands(args)
	if err != nil {
		return err
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")
	noDaemon, _ := cmd.Flags().GetBool("no-daemon")

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	router := newRouter(cfg, noDaemon)
	out, err := router.Compute(cmd.Context(), op, a, b)
	log.Default().Debug("operation", "op", string(op), "a", a, "b", b, "via", out.Via, "error", err)

	if !jsonOutput {
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), out.Value)
		return nil
	}

	output := OperationOutput{
		Operation: string(op),
		A:         a,
		B:         b,
		Via:       out.Via,
	}
	if err != nil {
		output.Error = err.Error()
		if errors.Is(err, calculator.ErrDivisionByZero) {
			output.ErrorKind = protocol.ErrorKindDivisionByZero
		}
	} else {
		value := out.Value
		output.Result = &value
	}

	data, jerr := json.MarshalIndent(output, "", "  ")
	if jerr != nil {
		return fmt.Errorf("marshaling output: %w", jerr)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))

	return err
}
