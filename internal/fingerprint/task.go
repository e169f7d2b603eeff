package fingerprint

import (
	"sort"

	"github.com/enri312/forge/internal/manifest"
)

// languageTag maps a manifest language to the single byte folded into
// a task fingerprint, so the same source tree compiled as Java vs.
// Kotlin never collides even if every other input happened to match.
var languageTag = map[manifest.Language]byte{
	manifest.LanguageJava:   0x01,
	manifest.LanguageKotlin: 0x02,
	manifest.LanguagePython: 0x03,
}

// TaskInput bundles every input the composite task fingerprint is
// computed over, per §4.2: language tag/version, the command
// template that will actually be invoked, the hashed input tree, the
// hashed dependency set, the sorted fingerprints of every upstream
// task this task depends on, and the canonical byte form of the
// manifest sub-tree governing it (the task's own declaration plus any
// language section fields the driver consults).
type TaskInput struct {
	Language        manifest.Language
	LanguageVersion string
	CommandTemplate string
	TreeHash        Fingerprint
	DepSetHash      Fingerprint
	Upstream        []Fingerprint
	ManifestSubtree []byte
}

// TaskFingerprint computes the composite fingerprint for one task.
func TaskFingerprint(in TaskInput) Fingerprint {
	upstream := make([]Fingerprint, len(in.Upstream))
	copy(upstream, in.Upstream)
	sort.Slice(upstream, func(i, j int) bool {
		return upstream[i].Hex() < upstream[j].Hex()
	})

	w := newFrameWriter()
	w.writeByte(domainTag)
	w.writeByte(languageTag[in.Language])
	w.writeString(in.LanguageVersion)
	w.writeString(in.CommandTemplate)
	w.writeBytes(in.TreeHash[:])
	w.writeBytes(in.DepSetHash[:])
	for _, up := range upstream {
		w.writeBytes(up[:])
	}
	w.writeBytes(in.ManifestSubtree)
	return w.sum()
}

// CanonicalManifestSubtree produces a deterministic byte encoding of
// the manifest fields that govern a single task's behavior, for use
// as TaskInput.ManifestSubtree. It is not a general-purpose manifest
// serializer: only the fields a driver or the scheduler actually
// consult for this task kind are included, in a fixed field order, so
// an unrelated manifest edit (e.g. a project description) never
// perturbs the fingerprint.
func CanonicalManifestSubtree(taskKind string, m *manifest.Manifest) []byte {
	w := newFrameWriter()
	w.writeString(taskKind)
	w.writeString(m.Project.OutputDir)

	switch m.Language() {
	case manifest.LanguageJava:
		if m.Java != nil {
			w.writeString(m.Java.Source)
			w.writeString(m.Java.TestSource)
			w.writeString(m.Java.Target)
			w.writeString(m.Java.MainClass)
		}
	case manifest.LanguageKotlin:
		if m.Kotlin != nil {
			w.writeString(m.Kotlin.Source)
			w.writeString(m.Kotlin.JVMTarget)
			w.writeString(m.Kotlin.MainClass)
		}
	case manifest.LanguagePython:
		if m.Python != nil {
			w.writeString(m.Python.Source)
			w.writeString(m.Python.MainScript)
		}
	}

	if t, ok := m.Tasks[taskKind]; ok {
		w.writeString(t.Command)
		for _, dep := range t.DependsOn {
			w.writeString(dep)
		}
	}

	return w.buf
}
