package support

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/cucumber/godog"

	"github.com/MeKo-Tech/pagescan/cmd/pagescan/cmd"
)

// iRunCommand executes a pagescan command line in-process.
func (testCtx *TestContext) iRunCommand(command string) error {
	parts := strings.Fields(command)
	if len(parts) == 0 {
		return errors.New("empty command")
	}
	if parts[0] != "pagescan" {
		return fmt.Errorf("unsupported command %q", parts[0])
	}
	testCtx.LastCommand = command

	root := cmd.NewRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(parts[1:])
	err := root.Execute()

	testCtx.LastError = err
	testCtx.LastOutput = out.String()
	testCtx.LastExitCode = 0
	if err != nil {
		testCtx.LastExitCode = 1
		testCtx.LastOutput += "Error: " + err.Error() + "\n"
	}
	return nil
}

func (testCtx *TestContext) theCommandShouldSucceed() error {
	if testCtx.LastExitCode != 0 {
		return fmt.Errorf("command %q failed: %w\nOutput: %s", testCtx.LastCommand, testCtx.LastError, testCtx.LastOutput)
	}
	return nil
}

func (testCtx *TestContext) theCommandShouldFail() error {
	if testCtx.LastExitCode == 0 {
		return fmt.Errorf("command %q succeeded when it should have failed\nOutput: %s", testCtx.LastCommand, testCtx.LastOutput)
	}
	return nil
}

func (testCtx *TestContext) theOutputShouldContain(expected string) error {
	if !strings.Contains(testCtx.LastOutput, expected) {
		return fmt.Errorf("output does not contain '%s'\nActual output: %s", expected, testCtx.LastOutput)
	}
	return nil
}

func (testCtx *TestContext) theOutputShouldNotContain(unexpected string) error {
	if strings.Contains(testCtx.LastOutput, unexpected) {
		return fmt.Errorf("output contains '%s'\nActual output: %s", unexpected, testCtx.LastOutput)
	}
	return nil
}

func (testCtx *TestContext) theErrorShouldMention(text string) error {
	if testCtx.LastError == nil {
		return errors.New("no error was returned")
	}
	if !strings.Contains(strings.ToLower(testCtx.LastError.Error()), strings.ToLower(text)) {
		return fmt.Errorf("error %q does not mention %q", testCtx.LastError, text)
	}
	return nil
}

// outputJSON decodes the command output, skipping any text before the first
// JSON value.
func (testCtx *TestContext) outputJSON() (any, error) {
	output := strings.TrimSpace(testCtx.LastOutput)
	start := strings.IndexAny(output, "{[")
	if start < 0 {
		return nil, fmt.Errorf("no JSON found in output: %s", testCtx.LastOutput)
	}
	var v any
	if err := json.Unmarshal([]byte(output[start:]), &v); err != nil {
		return nil, fmt.Errorf("output is not valid JSON: %w\nOutput: %s", err, output)
	}
	return v, nil
}

func (testCtx *TestContext) theOutputShouldBeValidJSON() error {
	_, err := testCtx.outputJSON()
	return err
}

// theJSONFieldShouldBe compares the value at a dotted path; numeric path
// segments index arrays.
func (testCtx *TestContext) theJSONFieldShouldBe(path, expected string) error {
	v, err := testCtx.outputJSON()
	if err != nil {
		return err
	}
	got, err := lookupJSON(v, path)
	if err != nil {
		return err
	}
	if s := fmt.Sprint(got); s != expected {
		return fmt.Errorf("JSON field %s is %s, want %s", path, s, expected)
	}
	return nil
}

func (testCtx *TestContext) theJSONArrayShouldHaveEntries(path string, n int) error {
	v, err := testCtx.outputJSON()
	if err != nil {
		return err
	}
	got, err := lookupJSON(v, path)
	if err != nil {
		return err
	}
	arr, ok := got.([]any)
	if !ok {
		return fmt.Errorf("JSON field %s is not an array", path)
	}
	if len(arr) != n {
		return fmt.Errorf("JSON array %s has %d entries, want %d", path, len(arr), n)
	}
	return nil
}

func lookupJSON(v any, path string) (any, error) {
	cur := v
	for _, seg := range strings.Split(path, ".") {
		switch node := cur.(type) {
		case map[string]any:
			next, ok := node[seg]
			if !ok {
				return nil, fmt.Errorf("JSON field %s not found", path)
			}
			cur = next
		case []any:
			var i int
			if _, err := fmt.Sscanf(seg, "%d", &i); err != nil || i < 0 || i >= len(node) {
				return nil, fmt.Errorf("JSON index %s invalid in %s", seg, path)
			}
			cur = node[i]
		default:
			return nil, fmt.Errorf("JSON path %s descends into a scalar", path)
		}
	}
	return cur, nil
}

func (testCtx *TestContext) theOutputShouldBeValidCSVWithRows(rows int) error {
	records, err := csv.NewReader(strings.NewReader(testCtx.LastOutput)).ReadAll()
	if err != nil {
		return fmt.Errorf("output is not valid CSV: %w", err)
	}
	if len(records) != rows+1 {
		return fmt.Errorf("CSV has %d data rows, want %d", len(records)-1, rows)
	}
	if len(records[0]) == 0 || records[0][0] != "file" {
		return fmt.Errorf("unexpected CSV header: %v", records[0])
	}
	return nil
}

// RegisterCommandSteps registers steps that run and inspect CLI commands.
func (testCtx *TestContext) RegisterCommandSteps(sc *godog.ScenarioContext) {
	sc.Step(`^I run "([^"]*)"$`, testCtx.iRunCommand)
	sc.Step(`^the command should succeed$`, testCtx.theCommandShouldSucceed)
	sc.Step(`^the command should fail$`, testCtx.theCommandShouldFail)
	sc.Step(`^the output should contain "([^"]*)"$`, testCtx.theOutputShouldContain)
	sc.Step(`^the output should not contain "([^"]*)"$`, testCtx.theOutputShouldNotContain)
	sc.Step(`^the error should mention "([^"]*)"$`, testCtx.theErrorShouldMention)
	sc.Step(`^the output should be valid JSON$`, testCtx.theOutputShouldBeValidJSON)
	sc.Step(`^the JSON field "([^"]*)" should be "([^"]*)"$`, testCtx.theJSONFieldShouldBe)
	sc.Step(`^the JSON array "([^"]*)" should have (\d+) entr(?:y|ies)$`, testCtx.theJSONArrayShouldHaveEntries)
	sc.Step(`^the output should be valid CSV with (\d+) rows?$`, testCtx.theOutputShouldBeValidCSVWithRows)
}
