package main

import (
	"context"
	"net"
	"slices"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/alnah/go-texnotes/internal/reload"
	"github.com/alnah/go-texnotes/internal/watch"
)

// runWatch builds the site and rebuilds it on every source change.
func runWatch(ctx context.Context, _ []string, flags *cliFlags, env *Environment) error {
	return runDev(ctx, flags, env, false)
}

// runServe is runWatch plus an HTTP server whose pages reload after each
// rebuild.
func runServe(ctx context.Context, _ []string, flags *cliFlags, env *Environment) error {
	return runDev(ctx, flags, env, true)
}

func runDev(ctx context.Context, flags *cliFlags, env *Environment, serve bool) error {
	log := env.log()
	s, err := loadSettings(flags, env)
	if err != nil {
		return err
	}
	st, err := newSite(s, log, serve)
	if err != nil {
		return err
	}

	d := &devLoop{st: st, log: log}
	if serve {
		d.hub = reload.NewHub(log)
	}
	if err := d.initial(ctx); err != nil {
		return err
	}

	w, err := watch.New(s.cfg.Site.SourceDir, s.debounce, log, d.extraFiles()...)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return w.Run(gctx, d.handle)
	})
	if serve {
		addr := s.cfg.Serve.Addr
		srv := reload.NewServer(s.cfg.Site.OutputDir, d.hub, log)
		g.Go(func() error {
			err := srv.ListenAndServe(gctx, addr, func(a net.Addr) {
				log.Info("serving", zap.String("url", "http://"+a.String()+"/"))
			})
			if err != nil {
				return &addrError{err: err, addr: addr}
			}
			return nil
		})
	}
	log.Info("watching", zap.String("dir", s.cfg.Site.SourceDir))

	if err := g.Wait(); err != nil {
		return err
	}
	return nil
}

// devLoop keeps the site current while sources change. Calls to handle
// never overlap.
type devLoop struct {
	st  *site
	hub *reload.Hub // nil without a server
	log *zap.Logger
}

// extraFiles are watched besides the .tex files of the source tree.
func (d *devLoop) extraFiles() []string {
	var extra []string
	if m := d.st.cfg.Latex.Main; m != "" {
		extra = append(extra, m)
	}
	if n := d.st.navFile(); n != "" {
		extra = append(extra, n)
	}
	return extra
}

// initial builds every page. Compile and page errors are logged so the
// loop can start and pick up the fix.
func (d *devLoop) initial(ctx context.Context) error {
	if err := d.st.discover(); err != nil {
		return err
	}
	if _, err := d.st.ensureAux(ctx, d.st.s.force); err != nil {
		d.logError("LaTeX failed, pages use the previous aux file", err)
	}
	if err := d.st.newConverter(); err != nil {
		return err
	}
	d.rebuildAll(ctx)
	return nil
}

// handle processes one batch of changed paths: affected pages are
// converted at once against the current labels, then LaTeX reruns and
// every page is rebuilt if the numbering moved.
func (d *devLoop) handle(ctx context.Context, paths []string) {
	d.log.Debug("changes", zap.Strings("paths", paths))
	st := d.st

	navChanged := false
	if nf := st.navFile(); nf != "" && slices.Contains(paths, absPath(nf)) {
		navChanged = true
		if err := st.loadNav(); err != nil {
			d.logError("nav file rejected, keeping the previous one", err)
		}
	}

	before := make(map[string]page, len(st.pages))
	for _, p := range st.pages {
		before[p.Rel] = p
	}
	if err := st.discover(); err != nil {
		d.logError("cannot list sources", err)
		return
	}
	added := false
	for _, p := range st.pages {
		if _, ok := before[p.Rel]; !ok {
			added = true
		}
		delete(before, p.Rel)
	}
	for _, gone := range before {
		st.removeOutput(gone)
	}

	rebuiltAll := false
	if navChanged || added || len(before) > 0 {
		if err := st.newConverter(); err != nil {
			d.logError("cannot rebuild", err)
			return
		}
		d.rebuildAll(ctx)
		rebuiltAll = true
	} else {
		var todo []page
		for _, p := range st.pages {
			if slices.Contains(paths, absPath(p.Source)) {
				todo = append(todo, p)
			}
		}
		if len(todo) > 0 {
			d.finish(st.convertPages(ctx, todo))
		}
	}

	if ctx.Err() != nil {
		return
	}
	changed, err := st.ensureAux(ctx, false)
	if err != nil {
		d.logError("LaTeX failed, pages use the previous aux file", err)
		return
	}
	if changed && !rebuiltAll {
		d.log.Info("label numbers changed, rebuilding every page")
		d.rebuildAll(ctx)
	}
}

// rebuildAll converts every page and rewrites the index.
func (d *devLoop) rebuildAll(ctx context.Context) {
	results := d.st.convertPages(ctx, d.st.pages)
	if err := d.st.writeIndex(ctx); err != nil {
		d.logError("cannot write index", err)
	}
	d.finish(results)
}

// finish reports results and tells open pages to reload.
func (d *devLoop) finish(results []pageResult) {
	_ = reportResults(d.log, results)
	if d.hub != nil {
		n := d.hub.Broadcast(strconv.Itoa(len(results)))
		d.log.Debug("reload sent", zap.Int("clients", n))
	}
}

func (d *devLoop) logError(msg string, err error) {
	d.log.Error(msg, zap.Error(err))
	if hint := hintFor(err); hint != "" {
		d.log.Info(strings.TrimSpace(hint))
	}
}
