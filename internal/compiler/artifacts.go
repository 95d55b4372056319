package compiler

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/roach88/sched2bt/internal/ir"
	"github.com/roach88/sched2bt/internal/pddl"
)

// Artifacts is the rendered domain and problem text.
type Artifacts struct {
	Domain  []byte
	Problem []byte
}

// Render formats both halves of an encoding.
func (enc *Encoding) Render() Artifacts {
	return Artifacts{
		Domain:  []byte(pddl.RenderDomain(enc.Domain)),
		Problem: []byte(pddl.RenderProblem(enc.Problem)),
	}
}

// DomainHash is the content hash of the domain text.
func (a Artifacts) DomainHash() string { return ir.ArtifactHash("domain", a.Domain) }

// ProblemHash is the content hash of the problem text.
func (a Artifacts) ProblemHash() string { return ir.ArtifactHash("problem", a.Problem) }

// WriteArtifacts writes the domain and problem as a pair. Both are staged
// in temp files next to their targets and renamed only once both writes
// have succeeded. On any failure the temps are removed and an *ir.IOError
// is returned; neither target is touched unless the first rename
// succeeded and the second failed, in which case the first is rolled back
// to its previous content when there was one.
func WriteArtifacts(a Artifacts, domainPath, problemPath string) error {
	domainTmp, err := stage(domainPath, a.Domain)
	if err != nil {
		return err
	}
	problemTmp, err := stage(problemPath, a.Problem)
	if err != nil {
		os.Remove(domainTmp)
		return err
	}

	backup, hadPrevious := readPrevious(domainPath)
	if err := os.Rename(domainTmp, domainPath); err != nil {
		os.Remove(domainTmp)
		os.Remove(problemTmp)
		return &ir.IOError{Op: "rename", Path: domainPath, Err: err}
	}
	if err := os.Rename(problemTmp, problemPath); err != nil {
		os.Remove(problemTmp)
		if hadPrevious {
			os.WriteFile(domainPath, backup, 0o644)
		} else {
			os.Remove(domainPath)
		}
		return &ir.IOError{Op: "rename", Path: problemPath, Err: err}
	}
	return nil
}

// stage writes data to a synced temp file in path's directory.
func stage(path string, data []byte) (string, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", &ir.IOError{Op: "mkdir", Path: dir, Err: err}
	}
	f, err := os.CreateTemp(dir, ".tmp-"+filepath.Base(path)+"-*")
	if err != nil {
		return "", &ir.IOError{Op: "create", Path: path, Err: err}
	}
	name := f.Name()
	_, werr := f.Write(data)
	serr := f.Sync()
	cerr := f.Close()
	if err := errors.Join(werr, serr, cerr); err != nil {
		os.Remove(name)
		return "", &ir.IOError{Op: "write", Path: path, Err: err}
	}
	if err := os.Chmod(name, 0o644); err != nil {
		os.Remove(name)
		return "", &ir.IOError{Op: "chmod", Path: path, Err: err}
	}
	return name, nil
}

func readPrevious(path string) ([]byte, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}
	return data, true
}
