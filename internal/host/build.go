package host

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/Orchestrator/backend/internal/domain/buildlog"
	"github.com/GriffinCanCode/Orchestrator/backend/internal/shared/id"
)

// BuildsDir is the directory inside an item that holds one directory per build.
const BuildsDir = "builds"

// HandleFile records the log handle of a build inside its directory.
const HandleFile = "handle.json"

// Build describes a finished unit of work.
type Build struct {
	Job     buildlog.JobData `json:"job"`
	Dir     string           `json:"dir"`
	Handle  buildlog.Handle  `json:"handle"`
	Success bool             `json:"success"`
}

// Work is the body of a build. Output written to w ends up in the build log.
type Work func(ctx context.Context, w io.Writer) error

// Build runs work as the next build of the item named fullName. Its output
// goes to the configured collector when there is one and to a file log under
// <item>/builds/<number>/ otherwise. The log handle is recorded next to it.
func (i *Instance) Build(ctx context.Context, fullName string, work Work) (Build, error) {
	if !i.Ready() {
		return Build{}, ErrNotReady
	}
	it, err := i.ItemByFullName(fullName)
	if err != nil {
		return Build{}, err
	}

	number, dir, err := i.allocateBuild(filepath.Join(it.RootDir(), BuildsDir))
	if err != nil {
		return Build{}, fmt.Errorf("allocate build for %s: %w", fullName, err)
	}
	job := buildlog.JobData{Item: it.FullName(), Number: number, BuildID: id.NewBuildID()}
	log := i.opts.Logger.ForBuild(job.Item, job.Number, job.BuildID.String())

	opts := i.opts.BuildLog
	opts.Logger = log
	var method buildlog.Method = buildlog.NewFileMethod(job, dir, opts)
	if i.opts.Collector != nil {
		method = buildlog.NewStreamMethod(job, i.opts.Collector, opts)
	}

	log.Info("Build started", zap.String("method", method.Name()))
	result := Build{Job: job, Dir: dir}
	err = buildlog.Execute(ctx, method, opts, func(ctx context.Context, w io.Writer) error {
		if s, ok := w.(buildlog.Sink); ok {
			result.Handle = s.Handle()
			if err := writeHandle(dir, result.Handle); err != nil {
				log.Warn("Failed to record log handle", zap.Error(err))
			}
		}
		return work(ctx, w)
	})
	result.Success = err == nil
	if err != nil {
		log.Warn("Build failed", zap.Error(err))
		return result, err
	}
	log.Info("Build finished")
	return result, nil
}

// AppendLog writes p to the log of build number of the item named fullName,
// reattaching to the destination recorded when the build ran.
func (i *Instance) AppendLog(fullName string, number int, p []byte) error {
	if !i.Ready() {
		return ErrNotReady
	}
	it, err := i.ItemByFullName(fullName)
	if err != nil {
		return err
	}
	dir := filepath.Join(it.RootDir(), BuildsDir, strconv.Itoa(number))
	data, err := os.ReadFile(filepath.Join(dir, HandleFile))
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s #%d", ErrNotFound, fullName, number)
	}
	if err != nil {
		return err
	}
	h, err := buildlog.DecodeHandle(data)
	if err != nil {
		return err
	}

	sink, err := h.Reattach(i.opts.BuildLog.Destinations)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s #%d", buildlog.ErrUnknownDestination, fullName, number)
	}
	if err != nil {
		return err
	}
	if c, ok := sink.(io.Closer); ok {
		defer c.Close()
	}
	_, err = sink.Write(p)
	return err
}

func writeHandle(dir string, h buildlog.Handle) error {
	data, err := buildlog.EncodeHandle(h)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, HandleFile), data, 0o644)
}

// allocateBuild reserves the next build number by creating its directory.
func (i *Instance) allocateBuild(buildsDir string) (int, string, error) {
	i.buildMu.Lock()
	defer i.buildMu.Unlock()

	if err := os.MkdirAll(buildsDir, 0o755); err != nil {
		return 0, "", err
	}
	entries, err := os.ReadDir(buildsDir)
	if err != nil {
		return 0, "", err
	}
	last := 0
	for _, e := range entries {
		if n, err := strconv.Atoi(e.Name()); err == nil && e.IsDir() && n > last {
			last = n
		}
	}
	number := last + 1
	dir := filepath.Join(buildsDir, strconv.Itoa(number))
	if err := os.Mkdir(dir, 0o755); err != nil {
		return 0, "", err
	}
	return number, dir, nil
}
