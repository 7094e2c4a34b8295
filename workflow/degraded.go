package workflow

import "context"

// DegradedSuffix marks the context key recorded when a degraded-mode stage
// substituted its fallback value.
const DegradedSuffix = ":degraded"

// DegradedMode wraps a stage so that a failure substitutes an explicit,
// caller-supplied fallback value instead of triggering the stage's failure
// policy. The substitution is never silent: a diagnostic is recorded and
// the key "<stage name>:degraded" is appended to the context, so every
// consumer of the run result can tell real output from fallback output.
//
// The fallback value must have the same dynamic type as the stage's normal
// output; downstream stages read it through the usual stage-name key.
func DegradedMode(primary Stage, fallback func() any) Stage {
	return Stage{
		Name:      primary.Name,
		OnFailure: primary.OnFailure,
		Execute: func(ctx context.Context, wc *Context) (any, error) {
			out, err := primary.Execute(ctx, wc)
			if err == nil {
				return out, nil
			}
			wc.AddDiagnostic(primary.Name, err)
			if putErr := wc.Put(primary.Name+DegradedSuffix, true); putErr != nil {
				return nil, putErr
			}
			return fallback(), nil
		},
	}
}
