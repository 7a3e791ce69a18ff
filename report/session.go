package report

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Report kinds, used as file name prefixes
const (
	KindComments = "comments"
	KindVideos   = "videosstats"
)

// Session owns the files of one run: the append-only log file and the result file. It is
// opened at run start and must be closed on every exit path.
type Session struct {
	dir        string
	logPath    string
	resultPath string

	logFile    *os.File
	resultFile *os.File
	out        *bufio.Writer
	err        error
}

// OpenSession creates dir if needed, opens <prefix>_<channelID>.log for appending and
// truncates <prefix>_<channelID>_<fileDate>.txt.
func OpenSession(dir, prefix, channelID, fileDate string) (*Session, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory %s: %w", dir, err)
	}

	s := &Session{
		dir:        dir,
		logPath:    filepath.Join(dir, prefix+"_"+channelID+".log"),
		resultPath: filepath.Join(dir, prefix+"_"+channelID+"_"+fileDate+".txt"),
	}

	var err error
	s.logFile, err = os.OpenFile(s.logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	s.resultFile, err = os.Create(s.resultPath)
	if err != nil {
		s.logFile.Close()
		return nil, fmt.Errorf("failed to open result file: %w", err)
	}
	s.out = bufio.NewWriter(s.resultFile)

	return s, nil
}

// LogWriter returns the log file. Writes go straight to disk.
func (s *Session) LogWriter() io.Writer {
	return s.logFile
}

// LogPath returns the log file path
func (s *Session) LogPath() string { return s.logPath }

// ResultPath returns the result file path
func (s *Session) ResultPath() string { return s.resultPath }

// Writeln writes each line followed by a newline. After the first failure every call
// returns the same error.
func (s *Session) Writeln(lines ...string) error {
	if s.err != nil {
		return s.err
	}
	if s.out == nil {
		return errors.New("result file is closed")
	}
	for _, line := range lines {
		if _, err := s.out.WriteString(line + "\n"); err != nil {
			s.err = fmt.Errorf("failed to write result file: %w", err)
			return s.err
		}
	}
	return nil
}

// SaveFile writes data to name inside the output directory and returns its path.
func (s *Session) SaveFile(name string, data []byte) (string, error) {
	if name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return "", fmt.Errorf("invalid file name %q", name)
	}
	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	return path, nil
}

// Close flushes the result file and closes both files.
func (s *Session) Close() error {
	var errs []error
	if s.out != nil {
		if err := s.out.Flush(); err != nil {
			errs = append(errs, fmt.Errorf("failed to flush result file: %w", err))
		}
		s.out = nil
	}
	if s.resultFile != nil {
		if err := s.resultFile.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close result file: %w", err))
		}
		s.resultFile = nil
	}
	if s.logFile != nil {
		if err := s.logFile.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close log file: %w", err))
		}
		s.logFile = nil
	}
	return errors.Join(errs...)
}
