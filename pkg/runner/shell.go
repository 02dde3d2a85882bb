package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"digital.vasic.campaigns/pkg/assertion"
	"digital.vasic.campaigns/pkg/execution"
	"digital.vasic.campaigns/pkg/logging"
)

const (
	// outputPrefix marks a stdout line "::output key=value" that
	// publishes a step output.
	outputPrefix = "::output "

	// expectPrefix marks a campaign parameter "expect.<key>" whose
	// value is checked against the output named key.
	expectPrefix = "expect."
)

// ShellOption configures a ShellExecutor.
type ShellOption func(*ShellExecutor)

// WithShellLogger sets the logger of the executor.
func WithShellLogger(logger logging.Logger) ShellOption {
	return func(e *ShellExecutor) {
		e.logger = logger
	}
}

// WithShellWorkDir runs every script from dir.
func WithShellWorkDir(dir string) ShellOption {
	return func(e *ShellExecutor) {
		e.workDir = dir
	}
}

// WithShellEnv adds variables to the environment of every script.
func WithShellEnv(vars map[string]string) ShellOption {
	return func(e *ShellExecutor) {
		for k, v := range vars {
			e.env[k] = v
		}
	}
}

// WithShellAssertions replaces the engine checking expectations.
func WithShellAssertions(engine assertion.Engine) ShellOption {
	return func(e *ShellExecutor) {
		e.assertions = engine
	}
}

// WithShellLogsDir keeps the captured output of every attempt
// under dir.
func WithShellLogsDir(dir string) ShellOption {
	return func(e *ShellExecutor) {
		e.logsDir = dir
	}
}

// ShellExecutor runs a scenario as the bash script
// <dir>/<scenario id>.sh. The exit code decides the status, stdout
// lines become step information and stderr lines step errors.
// Every stdout line also counts as progress.
//
// A script publishes outputs with "::output key=value" lines. Each
// "expect.<key>" parameter of the campaign is evaluated against
// output key and recorded as a child assertion step.
type ShellExecutor struct {
	dir        string
	workDir    string
	logsDir    string
	env        map[string]string
	logger     logging.Logger
	assertions assertion.Engine
	now        func() time.Time

	lastID atomic.Int64
}

var _ ScenarioExecutor = (*ShellExecutor)(nil)

// NewShellExecutor creates an executor for the scripts in dir.
func NewShellExecutor(dir string, opts ...ShellOption) *ShellExecutor {
	e := &ShellExecutor{
		dir:    dir,
		env:    map[string]string{},
		logger: logging.NullLogger{},
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.assertions == nil {
		e.assertions = assertion.NewEngine(assertion.WithLogger(e.logger))
	}
	return e
}

// newID returns a scenario execution id. Ids follow the clock in
// microseconds and never repeat within the executor, so they stay
// unique across runs persisted to the same store.
func (e *ShellExecutor) newID() int64 {
	for {
		last := e.lastID.Load()
		id := e.now().UnixMicro()
		if id <= last {
			id = last + 1
		}
		if e.lastID.CompareAndSwap(last, id) {
			return id
		}
	}
}

// ScriptPath returns the script run for scenarioID.
func (e *ShellExecutor) ScriptPath(scenarioID string) string {
	return filepath.Join(e.dir, scenarioID+".sh")
}

// Validate checks that every scenario has a script.
func (e *ShellExecutor) Validate(scenarioIDs []string) error {
	var errs []error
	for _, id := range scenarioIDs {
		if err := checkScript(e.ScriptPath(id)); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func checkScript(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("script %s: %w", path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("script %s: is a directory", path)
	}
	return nil
}

func (e *ShellExecutor) Execute(
	ctx context.Context,
	req ScenarioRequest,
) (execution.ScenarioExecutionReport, error) {
	script := e.ScriptPath(req.ScenarioID)
	if err := checkScript(script); err != nil {
		return execution.ScenarioExecutionReport{}, err
	}

	start := e.now()
	executionID := e.newID()
	logger := e.logger.WithFields(
		logging.ExecutionField(req.ExecutionID),
		logging.ScenarioField(req.ScenarioID),
		logging.IntField("attempt", req.Attempt),
	)
	logger.Debug("executing scenario script",
		logging.StringField("script", script),
	)

	cmd := exec.CommandContext(ctx, "bash", script)
	cmd.WaitDelay = 2 * time.Second
	if e.workDir != "" {
		cmd.Dir = e.workDir
	}
	cmd.Env = append(os.Environ(), e.environ(req)...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &progressWriter{buf: &stdout, progress: req.Progress}
	cmd.Stderr = &stderr

	err := cmd.Run()
	elapsed := e.now().Sub(start)

	outputs := map[string]any{
		"stdout":    strings.TrimSpace(stdout.String()),
		"stderr":    strings.TrimSpace(stderr.String()),
		"exit_code": "0",
	}
	info, published := splitOutputs(stdout.String())
	for k, v := range published {
		outputs[k] = v
	}
	status := execution.StatusSuccess
	errs := lines(stderr.String())

	if err != nil {
		var exitErr *exec.ExitError
		switch {
		case ctx.Err() != nil:
			status = execution.StatusStopped
			errs = append(errs, "execution interrupted")
		case errors.As(err, &exitErr):
			code := exitErr.ExitCode()
			outputs["exit_code"] = strconv.Itoa(code)
			status = execution.StatusFailure
			errs = append(errs, fmt.Sprintf("script exited with code %d", code))
		default:
			return execution.ScenarioExecutionReport{}, fmt.Errorf(
				"failed to run %s: %w", script, err,
			)
		}
	}

	e.writeOutputLog(req, stdout.Bytes(), stderr.Bytes(), logger)

	checks := e.assert(executionID, req, start, outputs)
	for _, c := range checks {
		errs = append(errs, c.Errors...)
	}

	step := execution.NewStepExecutionReportBuilder().
		SetExecutionID(executionID).
		SetName(req.ScenarioID).
		SetEnvironment(req.Environment).
		SetStartDate(start).
		SetDuration(elapsed.Milliseconds()).
		SetStatus(status).
		SetType("shell").
		SetTargetName(filepath.Base(script)).
		SetTargetURL("file://" + script).
		SetInformation(info).
		SetErrors(errs).
		SetStepOutputs(outputs).
		SetSteps(checks).
		Build()

	return execution.NewScenarioExecutionReport(
		executionID,
		req.ScenarioID,
		req.Environment,
		req.User,
		nil,
		req.DataSet,
		step,
	), nil
}

// environ describes the request to the script. Campaign parameters
// override data set constants of the same name.
func (e *ShellExecutor) environ(req ScenarioRequest) []string {
	vars := map[string]string{}
	for k, v := range e.env {
		vars[k] = v
	}
	if req.DataSet != nil {
		for k, v := range req.DataSet.Constants {
			vars[k] = v
		}
	}
	for k, v := range req.Parameters {
		if !strings.HasPrefix(k, expectPrefix) {
			vars[k] = v
		}
	}
	vars["CAMPAIGN_ID"] = strconv.FormatInt(req.CampaignID, 10)
	vars["CAMPAIGN_EXECUTION_ID"] = strconv.FormatInt(req.ExecutionID, 10)
	vars["CAMPAIGN_SCENARIO_ID"] = req.ScenarioID
	vars["CAMPAIGN_DATASET_ID"] = req.DatasetID
	vars["CAMPAIGN_ENVIRONMENT"] = req.Environment
	vars["CAMPAIGN_USER"] = req.User
	vars["CAMPAIGN_ATTEMPT"] = strconv.Itoa(req.Attempt)

	keys := make([]string, 0, len(vars))
	for k := range vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k+"="+vars[k])
	}
	return out
}

// assert evaluates the expect.* parameters of req against outputs,
// one child step per expectation, in key order.
func (e *ShellExecutor) assert(
	executionID int64,
	req ScenarioRequest,
	start time.Time,
	outputs map[string]any,
) []execution.StepExecutionReport {
	var defs []assertion.Definition
	for k, v := range req.Parameters {
		if target, ok := strings.CutPrefix(k, expectPrefix); ok && target != "" {
			defs = append(defs, assertion.Definition{Target: target, Expected: v})
		}
	}
	if len(defs) == 0 {
		return nil
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Target < defs[j].Target })

	steps := make([]execution.StepExecutionReport, 0, len(defs))
	for _, r := range e.assertions.EvaluateAll(defs, outputs) {
		b := execution.NewStepExecutionReportBuilder().
			SetExecutionID(executionID).
			SetName("assert " + r.Target).
			SetEnvironment(req.Environment).
			SetStartDate(start).
			SetType("assert").
			SetEvaluatedInputs(map[string]any{"expected": r.Expected, "actual": r.Actual})
		if r.Passed {
			b.SetStatus(execution.StatusSuccess).SetInformation([]string{r.Message})
		} else {
			b.SetStatus(execution.StatusFailure).SetErrors([]string{r.Message})
		}
		steps = append(steps, b.Build())
	}
	return steps
}

// splitOutputs separates "::output key=value" lines from the rest
// of stdout.
func splitOutputs(stdout string) ([]string, map[string]string) {
	info := []string{}
	outputs := map[string]string{}
	for _, line := range lines(stdout) {
		rest, ok := strings.CutPrefix(line, outputPrefix)
		if !ok {
			info = append(info, line)
			continue
		}
		if key, value, found := strings.Cut(rest, "="); found && strings.TrimSpace(key) != "" {
			outputs[strings.TrimSpace(key)] = value
		}
	}
	return info, outputs
}

// writeOutputLog keeps stdout and stderr of the attempt in
// <logs>/<execution id>/<scenario id>-<attempt>.log.
func (e *ShellExecutor) writeOutputLog(
	req ScenarioRequest,
	stdout, stderr []byte,
	logger logging.Logger,
) {
	if e.logsDir == "" {
		return
	}
	dir := filepath.Join(e.logsDir, strconv.FormatInt(req.ExecutionID, 10))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		logger.Warn("failed to create log dir", logging.ErrorField(err))
		return
	}
	path := filepath.Join(dir, fmt.Sprintf("%s-%d.log", req.ScenarioID, req.Attempt))
	var buf bytes.Buffer
	buf.WriteString("=== STDOUT ===\n")
	buf.Write(stdout)
	buf.WriteString("\n=== STDERR ===\n")
	buf.Write(stderr)
	buf.WriteString("\n")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		logger.Warn("failed to write output log", logging.ErrorField(err))
	}
}

// progressWriter buffers stdout and reports each complete line.
type progressWriter struct {
	buf      *bytes.Buffer
	progress *ProgressReporter
	partial  []byte
}

func (w *progressWriter) Write(p []byte) (int, error) {
	n, err := w.buf.Write(p)
	if w.progress == nil {
		return n, err
	}
	w.partial = append(w.partial, p...)
	for {
		i := bytes.IndexByte(w.partial, '\n')
		if i < 0 {
			break
		}
		if line := strings.TrimSpace(string(w.partial[:i])); line != "" {
			w.progress.Report(line)
		}
		w.partial = w.partial[i+1:]
	}
	return n, err
}

// lines splits s into its non-blank lines. Lines of any length are
// kept.
func lines(s string) []string {
	out := []string{}
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}
