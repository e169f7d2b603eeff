package manifest

import (
	"fmt"
	"strconv"

	"github.com/enri312/forge/internal/forgeerrors"
)

// minJavaTarget is the lowest JDK target version the engine accepts,
// matching the engine design's §6 schema note (java.target >= "17").
const minJavaTarget = "17"

// Validate checks a Manifest for schema-level invariants: language
// matching its language section, custom task names not colliding with
// built-in task kinds, and Java target version floor.
//
// Validate does not check that module paths resolve on disk — that is
// a workspace-level concern handled during recursive module loading,
// since it requires walking the filesystem relative to the workspace
// root.
func Validate(m *Manifest) error {
	if m.Project.Name == "" {
		return fmt.Errorf("%w: project.name: must not be empty", forgeerrors.ErrConfig)
	}

	if err := validateLanguage(m); err != nil {
		return err
	}

	if err := validateTaskNames(m); err != nil {
		return err
	}

	if m.Project.OutputDir == "" {
		m.Project.OutputDir = "build"
	}

	return nil
}

func validateLanguage(m *Manifest) error {
	switch Language(m.Project.Language) {
	case LanguageJava:
		if m.Kotlin != nil || m.Python != nil {
			return fmt.Errorf("%w: language is \"java\" but a [kotlin] or [python] section is present", forgeerrors.ErrConfig)
		}
		if m.Java != nil && m.Java.Target != "" {
			// Compare numerically: as strings "9" would sort above "17".
			target, convErr := strconv.Atoi(m.Java.Target)
			floor, _ := strconv.Atoi(minJavaTarget)
			if convErr != nil || target < floor {
				return fmt.Errorf("%w: java.target: value %q is below minimum %q", forgeerrors.ErrConfig, m.Java.Target, minJavaTarget)
			}
		}
	case LanguageKotlin:
		if m.Java != nil || m.Python != nil {
			return fmt.Errorf("%w: language is \"kotlin\" but a [java] or [python] section is present", forgeerrors.ErrConfig)
		}
	case LanguagePython:
		if m.Java != nil || m.Kotlin != nil {
			return fmt.Errorf("%w: language is \"python\" but a [java] or [kotlin] section is present", forgeerrors.ErrConfig)
		}
	default:
		return fmt.Errorf("%w: project.language: %q must be one of java, kotlin, python", forgeerrors.ErrConfig, m.Project.Language)
	}
	return nil
}

func validateTaskNames(m *Manifest) error {
	for name := range m.Tasks {
		if IsBuiltinTaskName(name) {
			return fmt.Errorf("%w: tasks.%s collides with a built-in task kind", forgeerrors.ErrTaskNameCollision, name)
		}
	}
	return nil
}
