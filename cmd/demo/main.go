// Command demo serves a task list bound with loom and kept current in the
// browser through the live patch stream.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	channerics "github.com/niceyeti/channerics/channels"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/loomui/loom"
	"github.com/loomui/loom/live"
)

var (
	host     string
	port     string
	loglevel string
)

func init() {
	flag.StringVar(&host, "host", "localhost", "Host name for the server")
	flag.StringVar(&port, "port", "8888", "Port number for the server")
	flag.StringVar(&loglevel, "loglevel", "info", "Log level (debug|info|warn|error|off)")
}

// Task is the per-item view model; the repeater resolves {{title}} and
// {{status}} against it.
type Task struct {
	title  *loom.Observable[string]
	status *loom.Observable[string]
}

func NewTask(title string) *Task {
	return &Task{
		title:  loom.NewObservable(title),
		status: loom.NewObservable("open"),
	}
}

func (t *Task) ObservableProperty(name string) (loom.Property, bool) {
	switch name {
	case "title":
		return loom.AsProperty(t.title), true
	case "status":
		return loom.AsProperty(t.status), true
	}
	return nil, false
}

func page(wsURL string) string {
	return `<!DOCTYPE html>
<html>
<head>
<title>loom demo</title>
` + live.ClientScript(wsURL) + `
</head>
<body>
<div id="app">
	<h1>{{headline}}</h1>
	<p>{{remaining}} task(s) remaining</p>
	<div class="tasks">
		<div data-component="repeater" data-context="tasks" data-on-click="complete">
			<template><p>{{title}} [{{status}}]</p></template>
		</div>
	</div>
</div>
</body>
</html>`
}

func main() {
	flag.Parse()
	addr := host + ":" + port

	doc, err := html.Parse(strings.NewReader(page("ws://" + addr + "/ws")))
	if err != nil {
		fmt.Fprintf(os.Stderr, "parsing page: %v\n", err)
		os.Exit(1)
	}
	body := findElement(doc, func(n *html.Node) bool { return n.DataAtom == atom.Body })
	appHost := findElement(doc, func(n *html.Node) bool {
		id, _ := loom.Attr(n, "id")
		return id == "app"
	})

	headline := loom.NewObservable("Team tasks")
	remaining := loom.NewObservable(0)
	tasks := loom.NewObservableArray[*Task]()

	app := loom.NewComponent("app", appHost).
		Property("headline", loom.AsProperty(headline)).
		Property("remaining", loom.AsProperty(remaining)).
		Property("tasks", loom.AsProperty(loom.NewObservable[any](loom.AsListSource(tasks)))).
		Callback("complete", func(ctx *loom.DataContext, evt *loom.Event) {
			task := ctx.Value().(*Task)
			task.status.Set("done")
		})

	done := make(chan struct{})
	defer close(done)
	hub := live.NewHub(done)
	live.Attach(app.Binder(), body, hub)
	server := live.NewServer(doc, hub, loglevel)

	server.DoSync(func() {
		if err := app.Mount(); err != nil {
			fmt.Fprintf(os.Stderr, "mounting app: %v\n", err)
			os.Exit(1)
		}
		tasks.Add(NewTask("write the demo"))
		tasks.Add(NewTask("serve the demo"))
		remaining.Set(openCount(tasks))
	})

	// Churn the list so connected browsers see incremental updates.
	go func() {
		n := 0
		for range channerics.NewTicker(done, 2*time.Second) {
			n++
			server.DoSync(func() {
				switch {
				case n%3 == 0 && tasks.Len() > 1:
					tasks.RemoveAt(0)
				case n%2 == 0 && tasks.Len() > 0:
					tasks.At(tasks.Len() - 1).status.Set("done")
				default:
					tasks.Insert(0, NewTask(fmt.Sprintf("task #%d", n)))
				}
				remaining.Set(openCount(tasks))
			})
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	if err := server.Start(addr); err != nil && err != http.ErrServerClosed {
		fmt.Fprintf(os.Stderr, "server: %v\n", err)
		os.Exit(1)
	}
}

func openCount(tasks *loom.ObservableArray[*Task]) int {
	n := 0
	for i := 0; i < tasks.Len(); i++ {
		if tasks.At(i).status.Value() != "done" {
			n++
		}
	}
	return n
}

func findElement(root *html.Node, match func(*html.Node) bool) *html.Node {
	if root.Type == html.ElementNode && match(root) {
		return root
	}
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, match); found != nil {
			return found
		}
	}
	return nil
}
