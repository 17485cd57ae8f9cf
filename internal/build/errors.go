package build

import "git.home.luguber.info/inful/docschema/internal/foundation/errors"

// Stage names, used in stage errors, logs and the stage duration metric.
const (
	StageSchemas   = "schemas"
	StageDiscovery = "discovery"
	StageLoad      = "load"
	StageFragments = "fragments"
	StageInterpret = "interpret"
	StageReconcile = "reconcile"
	StageRender    = "render"
	StagePersist   = "persist"
	StageOutput    = "output"
)

// stageError wraps a failure that stops the build. The category of a
// classified cause is kept so the CLI exit code still reflects it.
func stageError(stage string, cause error) error {
	b := errors.WrapError(cause, errors.CategoryBuild, stage+" stage failed")
	if ce, ok := errors.AsClassified(cause); ok {
		b = errors.WrapError(cause, ce.Category(), stage+" stage failed").WithContextMap(ce.Context())
	}
	return b.WithContext("stage", stage).Build()
}
