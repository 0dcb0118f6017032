package solver

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/quarree100/q100opt/core/logger"
	"github.com/quarree100/q100opt/core/lp"
)

// CBCConfig configures the external CBC solver.
type CBCConfig struct {
	// Path is the executable, looked up in PATH when relative.
	Path string `json:"path"`
	// Tee echoes solver output through the logger.
	Tee bool `json:"tee"`
	// WorkDir holds the temporary model and solution files. Empty means
	// the system temp dir.
	WorkDir string `json:"work_dir"`
	// KeepFiles leaves the model and solution files in place.
	KeepFiles bool `json:"keep_files"`
}

// CBC runs the COIN-OR CBC executable on an LP file.
type CBC struct {
	cfg CBCConfig
	log logger.Logger
}

// NewCBC returns a CBC solver.
func NewCBC(cfg CBCConfig, log logger.Logger) *CBC {
	if cfg.Path == "" {
		cfg.Path = "cbc"
	}
	return &CBC{cfg: cfg, log: logger.OrNop(log)}
}

func (c *CBC) Name() string { return "cbc" }

// SetLogger sets the logger used for echoed output.
func (c *CBC) SetLogger(l logger.Logger) { c.log = logger.OrNop(l) }

// Solve writes p to a temporary LP file and runs
// `cbc model.lp [sec N] solve solu sol.txt`. A context deadline is passed
// to CBC as time limit and also kills the process.
func (c *CBC) Solve(ctx context.Context, p *lp.Problem) (Solution, error) {
	if ctx.Err() != nil {
		return timeoutStatus(ctx)
	}
	start := time.Now()
	dir, err := os.MkdirTemp(c.cfg.WorkDir, "q100opt-cbc-")
	if err != nil {
		return Solution{Status: Error}, fmt.Errorf("cbc: %w", err)
	}
	if c.cfg.KeepFiles {
		c.log.Infof("cbc files kept in %s", dir)
	} else {
		defer os.RemoveAll(dir)
	}

	model := filepath.Join(dir, "model.lp")
	solPath := filepath.Join(dir, "solution.txt")
	if err := writeModel(model, p); err != nil {
		return Solution{Status: Error}, err
	}

	args := []string{model}
	if dl, ok := ctx.Deadline(); ok {
		secs := math.Max(1, math.Floor(time.Until(dl).Seconds()))
		args = append(args, "sec", strconv.Itoa(int(secs)))
	}
	args = append(args, "solve", "solu", solPath)

	var out bytes.Buffer
	cmd := exec.CommandContext(ctx, c.cfg.Path, args...)
	cmd.WaitDelay = 2 * time.Second
	var w io.Writer = &out
	if c.cfg.Tee {
		lw := &lineLogger{log: c.log}
		defer lw.Flush()
		w = io.MultiWriter(&out, lw)
	}
	cmd.Stdout, cmd.Stderr = w, w
	c.log.Debugf("running %s %s", c.cfg.Path, strings.Join(args, " "))
	runErr := cmd.Run()
	if ctx.Err() != nil {
		return timeoutStatus(ctx)
	}
	if runErr != nil {
		return Solution{Status: Error}, fmt.Errorf("cbc: %w: %s", runErr, tail(out.String(), 512))
	}

	f, err := os.Open(solPath)
	if err != nil {
		return Solution{Status: Error}, fmt.Errorf("cbc: no solution file: %w", err)
	}
	defer f.Close()
	sol, err := ParseCBCSolution(f, p.NumVariables())
	if err != nil {
		return Solution{Status: Error}, err
	}
	sol.Duration = time.Since(start)
	if sol.Status == Optimal {
		sol.Objective = p.Evaluate(sol.Values)
	}
	return sol, nil
}

func writeModel(path string, p *lp.Problem) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("cbc: %w", err)
	}
	if err := p.WriteLP(f); err != nil {
		f.Close()
		return fmt.Errorf("cbc: write model: %w", err)
	}
	return f.Close()
}

// ParseCBCSolution reads a CBC solution file for a problem with n
// variables named by lp.ColumnName. Columns CBC does not print are zero.
func ParseCBCSolution(r io.Reader, n int) (Solution, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return Solution{Status: Error}, fmt.Errorf("cbc: read solution: %w", err)
		}
		return Solution{Status: Error}, errors.New("cbc: empty solution file")
	}
	header := strings.TrimSpace(sc.Text())
	sol := Solution{Status: parseCBCStatus(header)}
	if sol.Status != Optimal {
		return sol, nil
	}
	sol.Values = make([]float64, n)
	for sc.Scan() {
		fields := strings.Fields(strings.TrimPrefix(strings.TrimSpace(sc.Text()), "**"))
		if len(fields) < 3 {
			continue
		}
		name := fields[1]
		if !strings.HasPrefix(name, "x") {
			continue
		}
		idx, err := strconv.Atoi(name[1:])
		if err != nil || idx < 0 || idx >= n {
			return Solution{Status: Error}, fmt.Errorf("cbc: unknown column %q", name)
		}
		v, err := strconv.ParseFloat(fields[2], 64)
		if err != nil {
			return Solution{Status: Error}, fmt.Errorf("cbc: column %s: %w", name, err)
		}
		sol.Values[idx] = v
	}
	if err := sc.Err(); err != nil {
		return Solution{Status: Error}, fmt.Errorf("cbc: read solution: %w", err)
	}
	return sol, nil
}

func parseCBCStatus(header string) Status {
	lower := strings.ToLower(header)
	switch {
	case strings.HasPrefix(lower, "optimal"):
		return Optimal
	case strings.Contains(lower, "infeasible"):
		return Infeasible
	case strings.Contains(lower, "unbounded"):
		return Unbounded
	case strings.HasPrefix(lower, "stopped on time"):
		return Timeout
	default:
		return Error
	}
}

// lineLogger forwards complete lines to a logger.
type lineLogger struct {
	log logger.Logger
	buf []byte
}

func (l *lineLogger) Write(p []byte) (int, error) {
	l.buf = append(l.buf, p...)
	for {
		i := bytes.IndexByte(l.buf, '\n')
		if i < 0 {
			break
		}
		if line := strings.TrimRight(string(l.buf[:i]), "\r"); line != "" {
			l.log.Infof("cbc: %s", line)
		}
		l.buf = l.buf[i+1:]
	}
	return len(p), nil
}

// Flush logs a trailing partial line.
func (l *lineLogger) Flush() {
	if len(l.buf) > 0 {
		l.log.Infof("cbc: %s", string(l.buf))
		l.buf = nil
	}
}

func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
