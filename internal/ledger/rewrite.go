package ledger

import (
	"bufio"
	"fmt"
	"os"
)

// Rewrite accumulates the surviving subset of a ledger generation in a side
// file. Nothing touches the canonical ledger until Commit, so an aborted cycle
// leaves the original file exactly as it was.
type Rewrite struct {
	path string
	tmp  *os.File
	w    *bufio.Writer
	done bool
}

// BeginRewrite opens a fresh side file next to the ledger.
func BeginRewrite(path string) (*Rewrite, error) {
	tmp, err := os.OpenFile(path+".next", os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("begin ledger rewrite: %w", err)
	}
	return &Rewrite{path: path, tmp: tmp, w: bufio.NewWriter(tmp)}, nil
}

// Keep carries one raw line forward into the next generation.
func (r *Rewrite) Keep(rawLine string) error {
	if _, err := r.w.WriteString(rawLine + "\n"); err != nil {
		return fmt.Errorf("ledger rewrite: %w", err)
	}
	return nil
}

// Commit swaps the new generation in with a two-step replace: the current
// ledger becomes <path>.bkp (clobbering any earlier backup), then the side
// file is renamed onto the canonical path.
func (r *Rewrite) Commit() error {
	if r.done {
		return nil
	}
	r.done = true
	if err := r.w.Flush(); err != nil {
		return fmt.Errorf("commit ledger rewrite: %w", err)
	}
	if err := r.tmp.Close(); err != nil {
		return fmt.Errorf("commit ledger rewrite: %w", err)
	}
	if err := os.Rename(r.path, r.path+".bkp"); err != nil {
		return fmt.Errorf("commit ledger rewrite: %w", err)
	}
	if err := os.Rename(r.tmp.Name(), r.path); err != nil {
		return fmt.Errorf("commit ledger rewrite: %w", err)
	}
	return nil
}

// Abort discards the side file. Safe to call after Commit; it does nothing
// then.
func (r *Rewrite) Abort() {
	if r.done {
		return
	}
	r.done = true
	r.tmp.Close()
	os.Remove(r.tmp.Name())
}
