package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"

	"github.com/prsnl/codemirror-client/config"
	"github.com/prsnl/codemirror-client/internal/api"
	"github.com/prsnl/codemirror-client/internal/controller"
	"github.com/prsnl/codemirror-client/internal/jobstate"
	"github.com/prsnl/codemirror-client/internal/model"
	"github.com/prsnl/codemirror-client/internal/pkg/token"
	"github.com/prsnl/codemirror-client/internal/timeline"
)

var (
	repoID    = flag.String("repo", "", "Repository id to analyze (empty: list repos and exit)")
	depthFlag = flag.String("depth", "", "Analysis depth: quick, standard, deep (default from config)")
	syncRepos = flag.Bool("sync", false, "Sync the repository listing from GitHub before anything else")
)

var (
	okColor   = color.New(color.FgGreen)
	failColor = color.New(color.FgRed)
	warnColor = color.New(color.FgYellow)
)

func main() {
	flag.Parse()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	client := api.NewClient(&cfg.API)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	if *syncRepos || cfg.Github.SyncOnStart {
		n, err := client.SyncRepos(ctx)
		if err != nil {
			log.Fatalf("Failed to sync repos: %v", err)
		}
		log.Printf("Synced %d repositories", n)
	}

	if *repoID == "" {
		listRepos(ctx, client)
		return
	}

	depth := model.Depth(*depthFlag)
	if *depthFlag == "" {
		depth = model.Depth(cfg.Analysis.DefaultDepth)
	}
	if depth == "" {
		depth = model.DepthStandard
	}

	store := jobstate.NewStore()
	done := make(chan struct{})

	ctrl := controller.New(client, store, controller.Options{
		PollInterval:    cfg.Poll.PollInterval(),
		IncludePatterns: cfg.Analysis.IncludePatterns,
		IncludeInsights: cfg.Analysis.IncludeInsights,
		Preflight:       func() error { return token.Inspect(cfg.API.Token) },
		OnTimeline: func(p timeline.Projection) {
			printTimeline(p)
			close(done)
		},
	})

	unsub := store.Subscribe(printProgress)
	defer unsub()

	handle, err := ctrl.Start(ctx, model.RepositoryRef{ID: *repoID, Name: *repoID}, depth)
	if err != nil {
		log.Fatalf("Failed to start analysis: %v", err)
	}
	log.Printf("Analysis started, job %s", handle.JobID)

	select {
	case <-done:
	case <-sigChan:
		warnColor.Println("Interrupted, disposing job")
		ctrl.Dispose(handle)
	}
}

func listRepos(ctx context.Context, client *api.Client) {
	repos, err := client.ListRepos(ctx)
	if err != nil {
		log.Fatalf("Failed to list repos: %v", err)
	}
	if len(repos) == 0 {
		fmt.Println("No repositories linked. Run with -sync first.")
		return
	}
	for _, r := range repos {
		visibility := "public"
		if r.Private {
			visibility = "private"
		}
		fmt.Printf("%-40s %-10s %s\n", r.FullName, visibility, r.ID)
	}
}

func printProgress(job model.Job) {
	switch job.Status {
	case model.StatusCompleted:
		okColor.Printf("[%3d%%] completed\n", job.ProgressPercent)
	case model.StatusFailed:
		failColor.Printf("[%3d%%] failed: %s\n", job.ProgressPercent, job.Error)
	default:
		stage := job.Stage
		if stage == "" {
			stage = string(job.Status)
		}
		fmt.Printf("[%3d%%] %s\n", job.ProgressPercent, stage)
	}
}

func printTimeline(p timeline.Projection) {
	if len(p.CriticalIssues) > 0 {
		failColor.Printf("\nCritical issues (%d)\n", len(p.CriticalIssues))
		for _, e := range p.CriticalIssues {
			fmt.Printf("  [%s] %s  %s\n", e.Severity, e.Repository.Name, e.Title)
		}
	}
	if len(p.Insights) > 0 {
		okColor.Printf("\nInsights (%d)\n", len(p.Insights))
		for _, e := range p.Insights {
			fmt.Printf("  %s  %s\n", e.Repository.Name, e.Title)
		}
	}
	if len(p.AnalysisHistory) > 0 {
		fmt.Printf("\nAnalysis history (%d)\n", len(p.AnalysisHistory))
		for _, e := range p.AnalysisHistory {
			fmt.Printf("  %s  %s\n", e.CreatedAt.Format("2006-01-02 15:04"), e.Repository.Name)
		}
	}
}
