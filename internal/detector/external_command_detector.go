// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package detector

import (
	"context"
	"errors"
	"os"
	"strings"
	"time"

	"github.com/siderolabs/go-cmd/pkg/cmd"

	"github.com/go-mimekit/mimekit/internal/mimetype"
)

// ErrNoCandidate is returned by nothing in this package; it documents the
// contract that a failed external probe yields "no candidate", never an
// error, so Guess's result is always either a MimeType or nil (spec.md §7).
var ErrNoCandidate = errors.New("detector: external command produced no candidate")

// CommandRunner runs name with args and returns its stdout, or an error. Swapped out in tests; in production it is
// backed by siderolabs/go-cmd, mirroring encryption/luks.LUKS.runCommand's
// cmd.RunContext + cmd.ExitError handling.
type CommandRunner func(ctx context.Context, name string, args ...string) (string, error)

// DefaultRunner shells out via siderolabs/go-cmd with no stdin.
func DefaultRunner(ctx context.Context, name string, args ...string) (string, error) {
	out, err := cmd.RunContext(ctx, name, args...)
	if err != nil {
		var exitErr *cmd.ExitError
		if errors.As(err, &exitErr) {
			// Non-zero exit is "no candidate", not a propagated error
			// (spec.md §6 "External command detector").
			return "", nil
		}

		return "", err
	}

	return out, nil
}

// ExternalCommandDetector delegates content identification to a host
// helper (e.g. `file --brief --mime-type`), keeping the repository-backed
// filename path. It treats non-zero exit, empty output, or I/O failure as
// "no candidate" (spec.md §6/§7), never as an error to propagate.
type ExternalCommandDetector struct {
	Repo Repository

	// Command and Args name the helper and its fixed arguments; the probed
	// path is appended as the final argument.
	Command string
	Args    []string

	Timeout time.Duration

	Run CommandRunner
}

var _ Detector = (*ExternalCommandDetector)(nil)

// NewExternalCommandDetector builds a Detector that shells out to command
// with args, appending the probed path, bounded by timeout.
func NewExternalCommandDetector(repo Repository, command string, args []string, timeout time.Duration) *ExternalCommandDetector {
	return &ExternalCommandDetector{
		Repo:    repo,
		Command: command,
		Args:    args,
		Timeout: timeout,
		Run:     DefaultRunner,
	}
}

// GuessFromFilename still uses the repository's filename indices.
func (d *ExternalCommandDetector) GuessFromFilename(filename string) []*mimetype.MimeType {
	if d.Repo == nil {
		return nil
	}

	return d.Repo.DetectByFilename(filename)
}

// GuessFromContent does not run the command: the external helper inspects
// a filesystem path rather than a byte prefix, so r cannot be used. This
// method exists to satisfy the Detector interface and always returns an
// error; use GuessFromPath instead.
func (d *ExternalCommandDetector) GuessFromContent(_ Reader, _ int) ([]*mimetype.MimeType, error) {
	return nil, errors.New("detector: ExternalCommandDetector requires a filesystem path, use GuessFromPath")
}

// GuessFromPath shells out to the configured command against path and
// resolves its trimmed stdout line to a MimeType via the repository's name
// index, if the repository exposes one.
func (d *ExternalCommandDetector) GuessFromPath(ctx context.Context, path string) (*mimetype.MimeType, error) {
	if d.Run == nil {
		d.Run = DefaultRunner
	}

	var cancel context.CancelFunc

	if d.Timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, d.Timeout)
		defer cancel()
	}

	args := append(append([]string{}, d.Args...), path)

	out, err := d.Run(ctx, d.Command, args...)
	if err != nil {
		if errors.Is(err, os.ErrDeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
			return nil, nil //nolint:nilnil // timeout is "no candidate", spec.md §6
		}

		return nil, nil //nolint:nilerr,nilnil // any other runner failure is "no candidate" too
	}

	name := strings.TrimSpace(out)
	if name == "" {
		return nil, nil //nolint:nilnil
	}

	if lookup, ok := d.Repo.(interface{ Lookup(string) *mimetype.MimeType }); ok {
		return lookup.Lookup(name), nil
	}

	return &mimetype.MimeType{Name: name}, nil
}

// Guess runs the filename path through the repository and the content path
// through the external command, merging per spec.md §4.6 (the filename
// path always uses the repository; only content detection is delegated).
func (d *ExternalCommandDetector) Guess(filename string, r Reader) (*mimetype.MimeType, error) {
	nameList := d.GuessFromFilename(filename)

	var contentList []*mimetype.MimeType

	if pathReader, ok := r.(interface{ Name() string }); ok {
		candidate, err := d.GuessFromPath(context.Background(), pathReader.Name())
		if err != nil {
			return nil, err
		}

		if candidate != nil {
			contentList = []*mimetype.MimeType{candidate}
		}
	}

	return Merge(nameList, contentList), nil
}
