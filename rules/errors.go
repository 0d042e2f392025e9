//go:build ruleguard

package gorules

import "github.com/quasilyte/go-ruleguard/dsl"

// ErrorsNewBare flags the stdlib errors constructors inside internal packages.
// Internal code builds errors through the fluent builder so every error
// carries a component and category for telemetry.
//
// Old pattern:
//
//	return errors.New("device not found")
//
// Preferred:
//
//	return errors.Newf("device not found").
//	    Component("myaudio").
//	    Category(errors.CategoryAudioDevice).
//	    Build()
func ErrorsNewBare(m dsl.Matcher) {
	m.Match(`errors.New($msg)`).
		Where(m["msg"].Type.Is("string") && m.File().PkgPath.Matches(`internal/(myaudio|pitch|analysis|datastore|mqtt)`)).
		Report("use the fluent error builder so the error carries component and category metadata")
}

// ComparingErrorStrings flags error comparison by message text.
func ComparingErrorStrings(m dsl.Matcher) {
	m.Match(
		`$err.Error() == $str`,
		`$err.Error() != $str`,
	).
		Where(m["err"].Type.Implements("error") && m["str"].Type.Is("string")).
		Report("compare errors with errors.Is or errors.As, not by message text")
}
