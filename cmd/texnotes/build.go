package main

import (
	"context"
)

// runBuild converts the site once. Positional args restrict conversion to
// those source files; the index page is always rewritten.
func runBuild(ctx context.Context, args []string, flags *cliFlags, env *Environment) error {
	s, err := loadSettings(flags, env)
	if err != nil {
		return err
	}
	st, err := newSite(s, env.log(), false)
	if err != nil {
		return err
	}
	results, err := st.Build(ctx, args)
	if err != nil {
		if results != nil {
			_ = reportResults(env.log(), results)
		}
		return err
	}
	return reportResults(env.log(), results)
}
