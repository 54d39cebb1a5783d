// Package refstore implements git's reference storage: loose refs
// under refs/, the packed-refs fallback, symbolic references (chiefly
// HEAD), and reflogs, layered on storage.RootFS so it works unchanged
// over any storage.Backend.
//
// Grounded on go-git's storage/filesystem/dotgit reference handling
// (dotgit/refs.go's loose+packed-refs merge, dotgit_setref.go's
// lock-check-write compare-and-swap), adapted to this module's
// storage.RootFS facade rather than a concrete billy.Filesystem, this
// store only ever sees named-file reads/writes, so it has no
// filesystem-level locking to rely on; CheckAndSet here is a read,
// compare, write sequence that is atomic against concurrent *writers
// through the same RefStore instance (guarded by a mutex) but not
// against an external process editing the same root concurrently,
// unlike go-git's flock-based version.
package refstore

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/opencore/gitcore/errkind"
	"github.com/opencore/gitcore/plumbing"
	"github.com/opencore/gitcore/storage"
)

const packedRefsPath = "packed-refs"

// RefStore is the reference store for one repository root.
type RefStore struct {
	root storage.RootFS
	log  *logrus.Entry

	mu sync.Mutex
}

// New returns a RefStore rooted at root. log may be nil, in which case
// a silent logger is used.
func New(root storage.RootFS, log *logrus.Entry) *RefStore {
	if log == nil {
		l := logrus.New()
		l.SetOutput(nullWriter{})
		log = logrus.NewEntry(l)
	}
	return &RefStore{root: root, log: log}
}

type nullWriter struct{}

func (nullWriter) Write(p []byte) (int, error) { return len(p), nil }

// Reference returns the reference stored under name, one hop only: a
// symbolic reference is returned as-is, not followed. Checks loose
// storage first, then packed-refs.
func (s *RefStore) Reference(name ReferenceName) (*Reference, error) {
	data, err := s.root.ReadFile(string(name))
	if err == nil {
		return parseLooseRef(name, data)
	}
	if err != storage.ErrNotExist {
		return nil, err
	}

	packed, err := s.readPackedRefs()
	if err != nil {
		return nil, err
	}
	if ref, ok := packed[name]; ok {
		return ref, nil
	}
	return nil, errkind.New(errkind.NotFound, "reference", storage.ErrNotExist).WithData(string(name))
}

func parseLooseRef(name ReferenceName, data []byte) (*Reference, error) {
	content := strings.TrimSpace(string(data))
	return NewReferenceFromStrings(string(name), content), nil
}

// Resolve follows a chain of symbolic references (e.g. HEAD -> refs/
// heads/main -> an OID) up to 10 hops, returning the final hash
// reference. 10 mirrors git's own symbolic-ref loop guard.
func (s *RefStore) Resolve(name ReferenceName) (*Reference, error) {
	for i := 0; i < 10; i++ {
		ref, err := s.Reference(name)
		if err != nil {
			return nil, err
		}
		if ref.Type() == HashReference {
			return ref, nil
		}
		name = ref.Target()
	}
	return nil, errkind.New(errkind.NotFound, "resolve", nil).WithData(fmt.Sprintf("symbolic reference loop at %q", name))
}

// SetReference writes ref unconditionally, creating or replacing
// whatever loose ref currently exists at ref.Name(). It does not
// touch packed-refs: a loose ref always shadows a packed one, so an
// unconditional set never needs to rewrite the pack.
func (s *RefStore) SetReference(ref *Reference) error {
	if err := ref.Name().Validate(); err != nil {
		return errkind.New(errkind.InvalidRefName, "setReference", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeLoose(ref)
}

// CheckAndSetReference writes ref only if the reference currently
// stored under ref.Name() equals old (or, if old is nil, only if no
// reference currently exists there), the atomic compare-and-swap
// every ref update in the commit/merge/checkout engines is built on.
func (s *RefStore) CheckAndSetReference(ref, old *Reference) error {
	if err := ref.Name().Validate(); err != nil {
		return errkind.New(errkind.InvalidRefName, "checkAndSetReference", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.Reference(ref.Name())
	if err != nil {
		if !errorsIsNotFound(err) {
			return err
		}
		current = nil
	}

	if !referencesEqual(current, old) {
		return errkind.New(errkind.Conflict, "checkAndSetReference", nil).WithData(struct {
			Name string
		}{string(ref.Name())})
	}

	if err := s.writeLoose(ref); err != nil {
		return err
	}

	s.appendReflog(ref.Name(), refHash(current), refHash(ref), "")
	return nil
}

func referencesEqual(a, b *Reference) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if a.Type() != b.Type() {
		return false
	}
	if a.Type() == SymbolicReference {
		return a.Target() == b.Target()
	}
	return a.Hash().Equal(b.Hash())
}

func refHash(r *Reference) plumbing.OID {
	if r == nil || r.Type() != HashReference {
		return plumbing.OID{}
	}
	return r.Hash()
}

func errorsIsNotFound(err error) bool {
	var ge *errkind.Error
	return asError(err, &ge) && ge.Kind == errkind.NotFound
}

func asError(err error, target **errkind.Error) bool {
	ge, ok := err.(*errkind.Error)
	if !ok {
		return false
	}
	*target = ge
	return true
}

func (s *RefStore) writeLoose(ref *Reference) error {
	name, content := ref.Strings()
	return s.root.WriteFile(name, []byte(content))
}

// RemoveReference deletes name's loose ref and, if it's only present
// in packed-refs, scrubs it from there too.
func (s *RefStore) RemoveReference(name ReferenceName) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.root.RemoveFile(string(name))
	if err != nil && err != storage.ErrNotExist {
		return err
	}

	packed, err := s.readPackedRefs()
	if err != nil {
		return err
	}
	if _, ok := packed[name]; !ok {
		return nil
	}
	delete(packed, name)
	return s.writePackedRefs(packed)
}

// IterReferences calls fn once for every reference in the store:
// every loose ref under refs/, HEAD, and every packed ref not
// shadowed by a loose one, in sorted name order.
func (s *RefStore) IterReferences(fn func(*Reference) error) error {
	seen := make(map[ReferenceName]bool)
	var refs []*Reference

	paths, err := s.root.ListDir("refs")
	if err != nil {
		return err
	}
	for _, p := range paths {
		data, err := s.root.ReadFile(p)
		if err != nil {
			if err == storage.ErrNotExist {
				continue
			}
			return err
		}
		name := ReferenceName(p)
		ref, err := parseLooseRef(name, data)
		if err != nil {
			return err
		}
		seen[name] = true
		refs = append(refs, ref)
	}

	if head, err := s.Reference(HEAD); err == nil {
		seen[HEAD] = true
		refs = append(refs, head)
	} else if !errorsIsNotFound(err) {
		return err
	}

	packed, err := s.readPackedRefs()
	if err != nil {
		return err
	}
	for name, ref := range packed {
		if seen[name] {
			continue
		}
		refs = append(refs, ref)
	}

	sort.Slice(refs, func(i, j int) bool { return refs[i].Name() < refs[j].Name() })
	for _, ref := range refs {
		if err := fn(ref); err != nil {
			return err
		}
	}
	return nil
}

func (s *RefStore) readPackedRefs() (map[ReferenceName]*Reference, error) {
	out := make(map[ReferenceName]*Reference)
	data, err := s.root.ReadFile(packedRefsPath)
	if err != nil {
		if err == storage.ErrNotExist {
			return out, nil
		}
		return nil, err
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimRight(line, "\r")
		if line == "" {
			continue
		}
		switch line[0] {
		case '#', '^':
			continue
		}
		sp := strings.IndexByte(line, ' ')
		if sp < 0 {
			return nil, errkind.New(errkind.ParseError, "readPackedRefs", nil).WithData(line)
		}
		oid, err := plumbing.FromHex(line[:sp])
		if err != nil {
			return nil, errkind.New(errkind.ParseError, "readPackedRefs", err)
		}
		name := ReferenceName(line[sp+1:])
		out[name] = NewHashReference(name, oid)
	}
	return out, nil
}

func (s *RefStore) writePackedRefs(refs map[ReferenceName]*Reference) error {
	names := make([]ReferenceName, 0, len(refs))
	for name := range refs {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })

	var buf bytes.Buffer
	buf.WriteString("# pack-refs with: peeled fully-peeled sorted\n")
	for _, name := range names {
		fmt.Fprintf(&buf, "%s %s\n", refs[name].Hash().String(), name)
	}
	return s.root.WriteFile(packedRefsPath, buf.Bytes())
}

// Pack moves every loose ref into packed-refs, leaving HEAD (always
// loose, since it is almost always symbolic) untouched. This is the
// maintenance operation real git exposes as `git pack-refs`.
func (s *RefStore) Pack() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	packed, err := s.readPackedRefs()
	if err != nil {
		return err
	}

	paths, err := s.root.ListDir("refs")
	if err != nil {
		return err
	}
	for _, p := range paths {
		data, err := s.root.ReadFile(p)
		if err != nil {
			continue
		}
		name := ReferenceName(p)
		ref, err := parseLooseRef(name, data)
		if err != nil {
			return err
		}
		if ref.Type() != HashReference {
			continue
		}
		packed[name] = ref
		if err := s.root.RemoveFile(p); err != nil {
			return err
		}
	}
	return s.writePackedRefs(packed)
}

// appendReflog records one entry in logs/<name>, matching git's
// "<old> <new> <committer> <timestamp> <tz>\t<message>" line format.
// Per policy this is best-effort: a failure here is logged and
// swallowed rather than surfaced, since a missing reflog entry doesn't
// corrupt the ref it's describing.
func (s *RefStore) appendReflog(name ReferenceName, oldOID, newOID plumbing.OID, message string) {
	logPath := "logs/" + string(name)
	existing, err := s.root.ReadFile(logPath)
	if err != nil && err != storage.ErrNotExist {
		s.log.WithFields(logrus.Fields{"component": "refstore", "ref": string(name), "op": "appendReflog"}).
			WithError(err).Warn("reflog read failed")
		return
	}

	line := fmt.Sprintf("%s %s %s\t%s\n", oldOID.String(), newOID.String(), reflogSignature(), message)
	if err := s.root.WriteFile(logPath, append(existing, []byte(line)...)); err != nil {
		s.log.WithFields(logrus.Fields{"component": "refstore", "ref": string(name), "op": "appendReflog"}).
			WithError(err).Warn("reflog write failed")
	}
}

func reflogSignature() string {
	return fmt.Sprintf("gitcore <gitcore@localhost> %d +0000", time.Now().Unix())
}
