package ui

import (
	"testing"

	"github.com/rivo/tview"
	"github.com/stretchr/testify/assert"
)

type recorder struct {
	*tview.Box
	name string
	log  *[]string
}

func (r *recorder) Name() string { return r.name }
func (r *recorder) Start()       { *r.log = append(*r.log, "start "+r.name) }
func (r *recorder) Stop()        { *r.log = append(*r.log, "stop "+r.name) }

func newPages(log *[]string, names ...string) *Pages {
	p := NewPages()
	for _, n := range names {
		p.Register(n, &recorder{Box: tview.NewBox(), name: n, log: log})
	}
	return p
}

func TestPagesPushPopLifecycle(t *testing.T) {
	var log []string
	p := newPages(&log, "list", "thread", "details")
	var crumbs [][]string
	p.SetOnChange(func(names []string) { crumbs = append(crumbs, names) })

	p.Reset("list")
	p.Push("thread")
	p.Push("details")
	assert.Equal(t, "details", p.Current())

	assert.Equal(t, "details", p.Pop())
	assert.Equal(t, "thread", p.Current())
	assert.Equal(t, "thread", p.Pop())
	assert.Equal(t, "", p.Pop(), "bottom page stays")

	assert.Equal(t, []string{
		"start list",
		"stop list", "start thread",
		"stop thread", "start details",
		"stop details", "start thread",
		"stop thread", "start list",
	}, log)
	assert.Equal(t, []string{"list", "thread", "details"}, crumbs[2])
	assert.Equal(t, []string{"list"}, crumbs[len(crumbs)-1])
}

func TestPagesResetAndStopAll(t *testing.T) {
	var log []string
	p := newPages(&log, "list", "thread")
	p.Reset("list")
	p.Push("thread")
	log = nil

	p.Reset("list")
	assert.Equal(t, []string{"stop thread", "start list"}, log)
	assert.Equal(t, []string{"list"}, p.Names())

	log = nil
	p.StopAll()
	assert.Equal(t, []string{"stop list"}, log)
	assert.Equal(t, "list", p.Current())
}

func TestFlashModel(t *testing.T) {
	changes := 0
	f := NewFlashModel(func() { changes++ })
	assert.Nil(t, f.Current())

	f.Warn("careful")
	msg := f.Current()
	if assert.NotNil(t, msg) {
		assert.Equal(t, "careful", msg.Text)
		assert.Equal(t, FlashWarn, msg.Level)
	}
	assert.Equal(t, 1, changes)
}

func TestPromptCompletesCommandNames(t *testing.T) {
	p := NewPrompt(DefaultTheme())
	p.SetCommands([]string{"open", "quit", "accept", "block"})

	p.Activate(PromptCommand, "")
	assert.Equal(t, []string{"accept"}, p.complete("a"))
	assert.Equal(t, []string{"open"}, p.complete("O"))
	assert.Nil(t, p.complete(""))
	assert.Nil(t, p.complete("open "), "arguments are not completed")
	assert.Nil(t, p.complete("open"), "exact match offers nothing")

	p.Activate(PromptFilter, "ravi")
	assert.Equal(t, "ravi", p.GetText())
	assert.Nil(t, p.complete("a"))
}

func TestCrumbsLabelFallsBackToPageID(t *testing.T) {
	c := NewCrumbs(DefaultTheme())
	c.SetLabel(func(page string) string {
		if page == "conversation" {
			return "Priya"
		}
		return ""
	})

	trail := c.trail([]string{"list", "conversation"})
	assert.Contains(t, trail, " list ")
	assert.Contains(t, trail, " Priya ")
	assert.NotContains(t, trail, "conversation")
}
