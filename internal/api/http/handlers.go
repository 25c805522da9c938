package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/GriffinCanCode/Orchestrator/backend/internal/api/middleware"
	"github.com/GriffinCanCode/Orchestrator/backend/internal/domain/buildlog"
	"github.com/GriffinCanCode/Orchestrator/backend/internal/domain/item"
	"github.com/GriffinCanCode/Orchestrator/backend/internal/domain/lifecycle"
	"github.com/GriffinCanCode/Orchestrator/backend/internal/domain/model"
	"github.com/GriffinCanCode/Orchestrator/backend/internal/host"
	"github.com/GriffinCanCode/Orchestrator/backend/internal/shared/validation"
)

// Handlers serves the item API of one host instance.
type Handlers struct {
	inst *host.Instance
}

// NewHandlers creates a new handler set
func NewHandlers(inst *host.Instance) *Handlers {
	return &Handlers{inst: inst}
}

// ItemView is the JSON shape of an item.
type ItemView struct {
	Name            string     `json:"name"`
	FullName        string     `json:"fullName"`
	DisplayName     string     `json:"displayName"`
	FullDisplayName string     `json:"fullDisplayName"`
	URL             string     `json:"url"`
	Kind            string     `json:"kind"`
	Description     string     `json:"description,omitempty"`
	Disabled        bool       `json:"disabled,omitempty"`
	Children        []ItemView `json:"children,omitempty"`
}

type configured interface {
	Config() item.Config
}

// NewItemView renders it. Folder children are included when deep is set.
func NewItemView(it item.Item, deep bool) ItemView {
	v := ItemView{
		Name:            it.Name(),
		FullName:        it.FullName(),
		DisplayName:     it.DisplayName(),
		FullDisplayName: it.FullDisplayName(),
		URL:             it.URL(),
		Kind:            it.Kind(),
	}
	if c, ok := it.(configured); ok {
		cfg := c.Config()
		v.Description = cfg.Description
		v.Disabled = cfg.Disabled
	}
	if f, ok := it.(*item.Folder); deep && ok {
		for _, child := range f.Items() {
			v.Children = append(v.Children, NewItemView(child, false))
		}
	}
	return v
}

// RequireReady rejects requests with 503 until the instance has booted.
// A boot failure message is passed through to the caller.
func (h *Handlers) RequireReady() gin.HandlerFunc {
	return func(c *gin.Context) {
		if h.inst.Ready() {
			c.Next()
			return
		}
		body := gin.H{"error": host.ErrNotReady.Error(), "state": h.inst.State()}
		if f := h.inst.Failure(); f != nil {
			body["error"] = f.Message
		}
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, body)
	}
}

// Health reports the lifecycle state. It answers 503 unless ready.
func (h *Handlers) Health(c *gin.Context) {
	state := h.inst.State()
	body := gin.H{
		"status": state,
		"items":  len(h.inst.Items()),
	}
	if f := h.inst.Failure(); f != nil {
		body["failure"] = f.Message
	}
	code := http.StatusOK
	if state != host.StateReady {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, body)
}

// ListItems lists every item, folders first-level children included.
func (h *Handlers) ListItems(c *gin.Context) {
	all := h.inst.AllItems()
	views := make([]ItemView, 0, len(all))
	for _, it := range all {
		views = append(views, NewItemView(it, false))
	}
	c.JSON(http.StatusOK, gin.H{
		"items": views,
		"count": len(views),
	})
}

// ResolveItem resolves /job/<a>/job/<b>/ to an item.
func (h *Handlers) ResolveItem(c *gin.Context) {
	fragment := model.DefaultURLChildPrefix + c.Param("path")
	if !strings.HasSuffix(fragment, "/") {
		fragment += "/"
	}
	it, err := h.inst.ResolveURL(fragment)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, NewItemView(it, true))
}

// CreateItemRequest is the body of an item creation.
type CreateItemRequest struct {
	Name        string `json:"name"`
	Parent      string `json:"parent,omitempty"`
	Kind        string `json:"kind,omitempty"`
	DisplayName string `json:"displayName,omitempty"`
	Description string `json:"description,omitempty"`
	Disabled    bool   `json:"disabled,omitempty"`
}

// CreateItem creates a job or folder, top-level or inside a folder.
func (h *Handlers) CreateItem(c *gin.Context) {
	var req CreateItemRequest
	if err := decodeBody(c, &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	switch req.Kind {
	case "", item.KindFreestyle, item.KindPipeline, item.KindFolder:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unknown kind %q", req.Kind)})
		return
	}

	it, err := h.inst.CreateItem(c.Request.Context(), strings.Trim(req.Parent, "/"), req.Name, item.Config{
		Kind:        req.Kind,
		DisplayName: req.DisplayName,
		Description: req.Description,
		Disabled:    req.Disabled,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, NewItemView(it, false))
}

// BuildRequest is the optional body of a build trigger.
type BuildRequest struct {
	Lines []string `json:"lines"`
}

// TriggerBuild runs a build of the item named by the path and writes the
// request lines to its log.
func (h *Handlers) TriggerBuild(c *gin.Context) {
	fullName := strings.Trim(c.Param("item"), "/")

	var req BuildRequest
	if c.Request.ContentLength != 0 {
		if err := decodeBody(c, &req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	rid := middleware.GetRequestID(c)
	b, err := h.inst.Build(c.Request.Context(), fullName, func(ctx context.Context, w io.Writer) error {
		if _, err := fmt.Fprintf(w, "Started by API request %s\n", rid); err != nil {
			return err
		}
		for _, line := range req.Lines {
			if err := ctx.Err(); err != nil {
				return err
			}
			if _, err := fmt.Fprintln(w, line); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil && b.Job.Number == 0 {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

// Reload re-runs every loader. Items keep their identity; a failed reload
// leaves the namespace as it was.
func (h *Handlers) Reload(c *gin.Context) {
	if err := h.inst.Reload(c.Request.Context()); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status": "reloaded",
		"items":  len(h.inst.AllItems()),
	})
}

// ReloadItem reloads one item, named by its full name, from disk.
func (h *Handlers) ReloadItem(c *gin.Context) {
	it, err := h.inst.ReloadItem(c.Request.Context(), strings.Trim(c.Param("item"), "/"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, NewItemView(it, true))
}

// AppendLog appends the request lines to the log of a finished or running
// build.
func (h *Handlers) AppendLog(c *gin.Context) {
	number, err := strconv.Atoi(c.Param("number"))
	if err != nil || number < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid build number %q", c.Param("number"))})
		return
	}
	var req BuildRequest
	if err := decodeBody(c, &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	var buf strings.Builder
	for _, line := range req.Lines {
		buf.WriteString(line)
		buf.WriteByte('\n')
	}
	fullName := strings.Trim(c.Param("item"), "/")
	if err := h.inst.AppendLog(fullName, number, []byte(buf.String())); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"item": fullName, "number": number, "lines": len(req.Lines)})
}

var bodyValidator = validation.NewJSONSizeValidator(validation.MaxBuildRequestSize)

// decodeBody reads a bounded JSON request body into out.
func decodeBody(c *gin.Context, out any) error {
	data, err := io.ReadAll(io.LimitReader(c.Request.Body, validation.MaxBuildRequestSize+1))
	if err != nil {
		return err
	}
	return bodyValidator.Decode(data, out)
}

// writeError maps host errors onto status codes.
func writeError(c *gin.Context, err error) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, host.ErrNotFound), errors.Is(err, model.ErrInvalidURL):
		code = http.StatusNotFound
	case errors.Is(err, host.ErrNotReady):
		code = http.StatusServiceUnavailable
	case errors.Is(err, item.ErrExists):
		code = http.StatusConflict
	case errors.Is(err, validation.ErrInvalidName), errors.Is(err, validation.ErrInvalidValue):
		code = http.StatusBadRequest
	case errors.Is(err, buildlog.ErrUnknownDestination), errors.Is(err, buildlog.ErrSinkClosed):
		code = http.StatusGone
	case errors.As(err, new(*lifecycle.LoadError)), errors.Is(err, host.ErrNameCollision):
		code = http.StatusUnprocessableEntity
	}
	c.JSON(code, gin.H{"error": err.Error()})
}
