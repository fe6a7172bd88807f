package pacs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"uploadsvc/internal/config"
	"uploadsvc/internal/logger"
)

// Artifacts kept inside the folder while an upload runs.
const (
	LockFile     = ".pacs_uploading"
	ProgressFile = ".pacs_progress"
	TempDir      = "temp"
)

// Reasons an asynchronous upload is not started.
const (
	ReasonMissingFolder = "missing-folder"
	ReasonInProgress    = "in-progress"
)

// StartResult is the answer of UploadFolderAsync.
type StartResult struct {
	Started bool   `json:"started"`
	Reason  string `json:"reason,omitempty"`
}

type Failure struct {
	Path  string `json:"path"`
	Error string `json:"error"`
}

// Result summarizes one folder upload.
type Result struct {
	Total    int       `json:"total"`
	Uploaded int       `json:"uploaded"`
	Skipped  int       `json:"skipped"`
	Failed   int       `json:"failed"`
	Failures []Failure `json:"failures,omitempty"`
	Labeled  []string  `json:"labeled,omitempty"`
}

// Request names the folder and the optional case name and study labels.
type Request struct {
	Folder string   `json:"folder"`
	Case   string   `json:"case,omitempty"`
	Labels []string `json:"labels,omitempty"`
}

// Uploader uploads whole folders, at most one upload per folder at a time.
type Uploader struct {
	Client   *Client
	Notifier Notifier
	// Include selects files by basename; defaults to *.dcm.
	Include []string
	// ReadUIDs reads DICOM identifiers; defaults to ReadUIDs.
	ReadUIDs func(path string) (UIDs, error)
	// OnDone is called after every finished upload.
	OnDone func(Request, Result)

	mu     sync.Mutex
	active map[string]struct{}
	wg     sync.WaitGroup
}

func NewUploader(c *Client, n Notifier, include []string) *Uploader {
	return &Uploader{Client: c, Notifier: n, Include: include}
}

func folderKey(folder string) string {
	p, err := filepath.Abs(folder)
	if err != nil {
		p = folder
	}
	if resolved, err := filepath.EvalSymlinks(p); err == nil {
		p = resolved
	}
	p = filepath.Clean(p)
	if runtime.GOOS == "windows" {
		p = strings.ToLower(p)
	}
	return p
}

func (u *Uploader) markActive(key string) bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.active == nil {
		u.active = make(map[string]struct{})
	}
	if _, ok := u.active[key]; ok {
		return false
	}
	u.active[key] = struct{}{}
	return true
}

func (u *Uploader) markInactive(key string) {
	u.mu.Lock()
	delete(u.active, key)
	u.mu.Unlock()
}

// Active reports whether folder is being uploaded by this process.
func (u *Uploader) Active(folder string) bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	_, ok := u.active[folderKey(folder)]
	return ok
}

// Wait blocks until all asynchronous uploads have finished.
func (u *Uploader) Wait() { u.wg.Wait() }

// UploadFolderAsync prepares the folder and uploads it in the background.
func (u *Uploader) UploadFolderAsync(ctx context.Context, req Request) StartResult {
	key, ok := u.begin(req.Folder)
	if !ok {
		if key == "" {
			return StartResult{Reason: ReasonMissingFolder}
		}
		return StartResult{Reason: ReasonInProgress}
	}
	u.wg.Add(1)
	go func() {
		defer u.wg.Done()
		defer u.markInactive(key)
		res := u.run(ctx, req)
		if u.OnDone != nil {
			u.OnDone(req, res)
		}
	}()
	return StartResult{Started: true}
}

// UploadFolder uploads synchronously.
func (u *Uploader) UploadFolder(ctx context.Context, req Request) (Result, error) {
	key, ok := u.begin(req.Folder)
	if !ok {
		if key == "" {
			return Result{}, fmt.Errorf("%s: %s", ReasonMissingFolder, req.Folder)
		}
		return Result{}, fmt.Errorf("%s: %s", ReasonInProgress, req.Folder)
	}
	defer u.markInactive(key)
	res := u.run(ctx, req)
	if u.OnDone != nil {
		u.OnDone(req, res)
	}
	return res, nil
}

// begin claims the folder and writes the lock and progress files. An empty
// key means the folder does not exist.
func (u *Uploader) begin(folder string) (string, bool) {
	if fi, err := os.Stat(folder); err != nil || !fi.IsDir() {
		return "", false
	}
	key := folderKey(folder)
	if !u.markActive(key) {
		u.notify("PACS upload already running in current service process", "")
		return key, false
	}

	lock := filepath.Join(folder, LockFile)
	progress := filepath.Join(folder, ProgressFile)
	if _, err := os.Stat(lock); err == nil {
		percent := ""
		if b, err := os.ReadFile(progress); err == nil {
			percent = strings.TrimSpace(string(b))
		}
		if percent != "" {
			u.notify(fmt.Sprintf("Detected interrupted PACS upload state (%s%%). Restarting and resuming where possible.", percent), "")
		} else {
			u.notify("Detected interrupted PACS upload state. Restarting and resuming where possible.", "")
		}
		cleanup(folder)
	}

	if err := os.WriteFile(lock, []byte(time.Now().Format("2006-01-02 15:04:05")), 0644); err != nil {
		logger.Warn("Write %s: %v", lock, err)
	}
	writeProgress(folder, 0)
	return key, true
}

func cleanup(folder string) {
	_ = os.Remove(filepath.Join(folder, LockFile))
	_ = os.Remove(filepath.Join(folder, ProgressFile))
	_ = os.RemoveAll(filepath.Join(folder, TempDir))
}

func writeProgress(folder string, percent int) {
	_ = os.WriteFile(filepath.Join(folder, ProgressFile), []byte(strconv.Itoa(percent)), 0644)
}

func (u *Uploader) readUIDs(path string) (UIDs, error) {
	if u.ReadUIDs != nil {
		return u.ReadUIDs(path)
	}
	return ReadUIDs(path)
}

// collect lists matching files below folder, outside temp/, sorted.
func (u *Uploader) collect(folder string) ([]string, error) {
	include := u.Include
	if len(include) == 0 {
		include = []string{"*.dcm"}
	}
	temp := filepath.Join(folder, TempDir)
	var files []string
	err := filepath.WalkDir(folder, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path == temp {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type().IsRegular() && config.MatchAny(include, d.Name()) {
			files = append(files, path)
		}
		return nil
	})
	sort.Strings(files)
	return files, err
}

func (u *Uploader) run(ctx context.Context, req Request) Result {
	folder := req.Folder
	defer cleanup(folder)

	temp := filepath.Join(folder, TempDir)
	_ = os.RemoveAll(temp)
	if err := os.MkdirAll(temp, 0755); err != nil {
		logger.Warn("Create %s: %v", temp, err)
	}

	var res Result
	files, err := u.collect(folder)
	if err != nil {
		u.notify(fmt.Sprintf("PACS upload failed to list %s: %v", folder, err), "red")
	}
	res.Total = len(files)
	if res.Total == 0 {
		return res
	}

	suffix := ""
	if req.Case != "" {
		suffix = " for case " + req.Case
	}
	u.notify(fmt.Sprintf("PACS upload started%s: %d file(s)", suffix, res.Total), "")

	var studyUID string
	for _, path := range files {
		if ctx.Err() != nil {
			res.Failures = append(res.Failures, Failure{Path: path, Error: ctx.Err().Error()})
			continue
		}
		uids, err := u.readUIDs(path)
		if err != nil {
			u.notify(fmt.Sprintf("PACS SOP UID read failed for %s: %v", filepath.Base(path), err), "red")
		}
		if studyUID == "" {
			studyUID = uids.StudyInstance
		}
		if uids.SOPInstance != "" && u.Client.InstanceExists(ctx, uids.SOPInstance, uids.SeriesInstance) {
			res.Skipped++
			continue
		}
		if err := u.uploadOne(ctx, folder, path, suffix, uids); err != nil {
			res.Failures = append(res.Failures, Failure{Path: path, Error: err.Error()})
			continue
		}
		res.Uploaded++
	}
	res.Failed = len(res.Failures)

	if res.Failed > 0 {
		for _, f := range res.Failures {
			u.notify(fmt.Sprintf("PACS upload failed%s: %s - %s", suffix, f.Path, f.Error), "red")
		}
		u.notify(fmt.Sprintf("PACS upload completed%s with %d failure(s) out of %d", suffix, res.Failed, res.Total), "red")
		return res
	}

	writeProgress(folder, 100)
	u.notify(fmt.Sprintf("PACS upload completed%s: %d file(s)", suffix, res.Uploaded), "green")

	if len(req.Labels) > 0 && studyUID != "" {
		for _, label := range req.Labels {
			if u.Client.AddLabel(ctx, studyUID, label) {
				res.Labeled = append(res.Labeled, label)
			}
		}
	}
	return res
}

// errNotConfirmed marks an upload the PACS accepted but cannot find.
var errNotConfirmed = errors.New("upload-not-confirmed")

func (u *Uploader) uploadOne(ctx context.Context, folder, path, suffix string, uids UIDs) error {
	dest, err := copyToTemp(filepath.Join(folder, TempDir), path)
	if err != nil {
		return err
	}

	name := filepath.Base(path)
	last := -1
	progress := func(sent, total int64) {
		if total <= 0 {
			return
		}
		percent := int(sent * 100 / total)
		if percent == last {
			return
		}
		last = percent
		writeProgress(folder, percent)
		u.notify(fmt.Sprintf("PACS upload progress%s: %d%% (%s)", suffix, percent, name), "")
	}
	if _, err := u.Client.UploadFile(ctx, dest, progress); err != nil {
		return err
	}

	if uids.SOPInstance == "" {
		u.notify(fmt.Sprintf("PACS upload completed%s: %s (no SOPInstanceUID)", suffix, name), "")
		return nil
	}
	if !u.Client.ConfirmUploaded(ctx, uids.SOPInstance, uids.SeriesInstance) {
		u.notify(fmt.Sprintf("PACS upload not confirmed%s: %s", suffix, name), "red")
		return errNotConfirmed
	}
	u.notify(fmt.Sprintf("PACS upload confirmed%s: %s", suffix, name), "")
	return nil
}

// copyToTemp copies src into dir, picking a unique name when a different
// file with the same name is already there.
func copyToTemp(dir, src string) (string, error) {
	in, err := os.Open(src)
	if err != nil {
		return "", err
	}
	defer in.Close()
	si, err := in.Stat()
	if err != nil {
		return "", err
	}

	dest := filepath.Join(dir, filepath.Base(src))
	if di, err := os.Stat(dest); err == nil && di.Size() != si.Size() {
		ext := filepath.Ext(src)
		if ext == "" {
			ext = ".dcm"
		}
		stem := strings.TrimSuffix(filepath.Base(src), filepath.Ext(src))
		dest = filepath.Join(dir, fmt.Sprintf("%s_%d%s", stem, time.Now().UnixMilli(), ext))
	}

	out, err := os.Create(dest)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return "", err
	}
	if err := out.Close(); err != nil {
		return "", err
	}
	_ = os.Chtimes(dest, si.ModTime(), si.ModTime())
	return dest, nil
}

func (u *Uploader) notify(msg, color string) {
	logger.Info("%s", msg)
	if u.Notifier != nil {
		u.Notifier.Notify(msg, color)
	}
}
