package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"uploadsvc/internal/logger"
	"uploadsvc/internal/pacs"
	"uploadsvc/internal/servicectl"
)

func (s *Server) status(c *gin.Context) {
	resp := StatusResponse{
		Service:      s.ctrl.Name(),
		State:        string(servicectl.StateUnknown),
		APIConnected: true,
		UIConnected:  s.connected.Load(),
	}
	st, err := s.ctrl.Query(c.Request.Context())
	if err != nil {
		resp.Error = err.Error()
	} else {
		resp.OK = true
		resp.State = string(st.State)
		resp.Running = st.Running()
		resp.Installed = st.Installed
		resp.PID = st.PID
	}
	boolGauge(s.metrics.serviceRunning, resp.Running)
	c.JSON(http.StatusOK, resp)
}

// control runs one controller action and reports it as {ok, output}.
func (s *Server) control(c *gin.Context, action string, fn func() error, done string) {
	err := fn()
	s.metrics.controlOps.WithLabelValues(action, result(err)).Inc()
	if err != nil {
		logger.Warn("API %s failed: %v", action, err)
		c.JSON(statusFor(err), ActionResponse{OK: false, Output: err.Error()})
		return
	}
	c.JSON(http.StatusOK, ActionResponse{OK: true, Output: done})
}

func statusFor(err error) int {
	if errors.Is(err, servicectl.ErrAccessDenied) {
		return http.StatusForbidden
	}
	return http.StatusInternalServerError
}

func outcome(err error, done string) string {
	if err != nil {
		return err.Error()
	}
	return done
}

func (s *Server) start(c *gin.Context) {
	ctx := c.Request.Context()
	s.control(c, "start", func() error { return s.ctrl.Start(ctx) },
		fmt.Sprintf("Service %s started", s.ctrl.Name()))
}

func (s *Server) stop(c *gin.Context) {
	ctx := c.Request.Context()
	s.control(c, "stop", func() error { return s.ctrl.Stop(ctx) },
		fmt.Sprintf("Service %s stopped", s.ctrl.Name()))
}

func (s *Server) forceStop(c *gin.Context) {
	ctx := c.Request.Context()
	s.control(c, "force-stop", func() error { return s.ctrl.ForceStop(ctx) },
		fmt.Sprintf("Service %s terminated", s.ctrl.Name()))
}

// restart stops then starts; a service that was not running is still started.
func (s *Server) restart(c *gin.Context) {
	ctx := c.Request.Context()
	name := s.ctrl.Name()

	stopErr := servicectl.IgnoreNoop(s.ctrl.Stop(ctx))
	startErr := s.ctrl.Start(ctx)
	ok := stopErr == nil && startErr == nil

	var err error
	if !ok {
		err = errors.Join(stopErr, startErr)
	}
	s.metrics.controlOps.WithLabelValues("restart", result(err)).Inc()

	code := http.StatusOK
	if !ok {
		code = statusFor(err)
	}
	c.JSON(code, ActionResponse{
		OK:    ok,
		Stop:  outcome(stopErr, fmt.Sprintf("Service %s stopped", name)),
		Start: outcome(startErr, fmt.Sprintf("Service %s started", name)),
	})
}

func (s *Server) requireAdmin(c *gin.Context, action string) bool {
	if s.opts.IsAdmin() {
		return true
	}
	s.metrics.controlOps.WithLabelValues(action, "denied").Inc()
	c.JSON(http.StatusForbidden, ActionResponse{OK: false, Output: "Administrator privileges required"})
	return false
}

func (s *Server) install(c *gin.Context) {
	if !s.requireAdmin(c, "install") {
		return
	}
	if s.opts.Install.Executable == "" {
		c.JSON(http.StatusInternalServerError, ActionResponse{OK: false, Error: "install is not configured"})
		return
	}
	ctx := c.Request.Context()
	s.control(c, "install", func() error { return s.ctrl.Install(ctx, s.opts.Install) },
		fmt.Sprintf("Service %s installed", s.ctrl.Name()))
}

func (s *Server) uninstall(c *gin.Context) {
	if !s.requireAdmin(c, "uninstall") {
		return
	}
	ctx := c.Request.Context()
	name := s.ctrl.Name()

	stopErr := servicectl.IgnoreNoop(s.ctrl.Stop(ctx))
	if errors.Is(stopErr, servicectl.ErrNotInstalled) {
		stopErr = nil
	}
	delErr := s.ctrl.Remove(ctx)
	s.metrics.controlOps.WithLabelValues("uninstall", result(delErr)).Inc()

	code := http.StatusOK
	if delErr != nil {
		code = statusFor(delErr)
	}
	c.JSON(code, ActionResponse{
		OK:     delErr == nil,
		Stop:   outcome(stopErr, fmt.Sprintf("Service %s stopped", name)),
		Delete: outcome(delErr, fmt.Sprintf("Service %s deleted", name)),
	})
}

func (s *Server) setConnected(c *gin.Context, v bool, msg string) {
	s.connected.Store(v)
	boolGauge(s.metrics.uiConnected, v)
	c.JSON(http.StatusOK, ActionResponse{OK: true, Message: msg})
}

func (s *Server) connect(c *gin.Context)    { s.setConnected(c, true, "Connected") }
func (s *Server) disconnect(c *gin.Context) { s.setConnected(c, false, "Disconnected") }
func (s *Server) reconnect(c *gin.Context)  { s.setConnected(c, true, "UI reconnected") }

func (s *Server) postLog(c *gin.Context) {
	var req LogRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Message) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid payload"})
		return
	}
	e := s.appendLog(LogEntry{Message: req.Message, Source: req.Source, Color: req.Color})
	c.JSON(http.StatusOK, gin.H{"ok": true, "seq": e.Seq})
}

func (s *Server) listLogs(c *gin.Context) {
	var after int64
	if v := c.Query("after"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid after"})
			return
		}
		after = n
	}
	entries := s.logs.Since(after)
	last := after
	if len(entries) > 0 {
		last = entries[len(entries)-1].Seq
	}
	c.JSON(http.StatusOK, LogsResponse{OK: true, Entries: entries, Last: last})
}

func (s *Server) upload(c *gin.Context) {
	u := s.opts.Uploader
	if u == nil {
		s.metrics.uploads.WithLabelValues("unavailable").Inc()
		c.JSON(http.StatusServiceUnavailable, UploadResponse{Error: "PACS is not configured"})
		return
	}
	var req pacs.Request
	if err := c.ShouldBindJSON(&req); err != nil || req.Folder == "" {
		c.JSON(http.StatusBadRequest, UploadResponse{Error: "folder is required"})
		return
	}

	res := u.UploadFolderAsync(s.baseContext(), req)
	if res.Started {
		s.metrics.uploads.WithLabelValues("started").Inc()
		c.JSON(http.StatusAccepted, UploadResponse{OK: true, StartResult: res})
		return
	}
	s.metrics.uploads.WithLabelValues(res.Reason).Inc()
	code := http.StatusConflict
	if res.Reason == pacs.ReasonMissingFolder {
		code = http.StatusNotFound
	}
	c.JSON(code, UploadResponse{StartResult: res, Error: res.Reason})
}

func (s *Server) recordUpload(res pacs.Result) {
	r := "completed"
	if res.Failed > 0 {
		r = "failed"
	}
	s.metrics.uploads.WithLabelValues(r).Inc()
	s.metrics.uploadFiles.WithLabelValues("uploaded").Add(float64(res.Uploaded))
	s.metrics.uploadFiles.WithLabelValues("skipped").Add(float64(res.Skipped))
	s.metrics.uploadFiles.WithLabelValues("failed").Add(float64(res.Failed))
}
