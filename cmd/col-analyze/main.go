// col-analyze drives one analysis session from the terminal: it detects
// the jurisdiction, then walks every stage through the generate / score /
// refine / commit loop, and writes the markdown report at the end.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/joelkehle/col-analyzer/internal/casestore"
	"github.com/joelkehle/col-analyzer/internal/colanalysis"
	"github.com/joelkehle/col-analyzer/internal/refdata"
)

func main() {
	jurisdictionsFlag := flag.String("jurisdictions", "./data/jurisdictions.csv", "path to the jurisdictions CSV")
	themesFlag := flag.String("themes", "./data/themes.csv", "path to the PIL themes CSV")
	dbFlag := flag.String("db", "./data/case_analyses.db", "path to SQLite database file")
	caseFlag := flag.String("case", "", "case citation (required)")
	fileFlag := flag.String("file", "", "path to the judgment text file (required)")
	userFlag := flag.String("user", "", "analyst username")
	emailFlag := flag.String("email", "", "analyst email")
	outFlag := flag.String("out", "report.md", "output path for the markdown report")
	flag.Parse()

	if strings.TrimSpace(*caseFlag) == "" || strings.TrimSpace(*fileFlag) == "" {
		flag.Usage()
		os.Exit(2)
	}

	fullText, err := os.ReadFile(*fileFlag)
	if err != nil {
		log.Fatalf("read judgment: %v", err)
	}

	tables, err := refdata.Load(*jurisdictionsFlag, *themesFlag)
	if err != nil {
		log.Fatalf("reference data: %v", err)
	}
	caller, err := colanalysis.NewAnthropicCallerFromEnv()
	if err != nil {
		log.Fatalf("llm: %v", err)
	}
	store, err := casestore.Open(*dbFlag)
	if err != nil {
		log.Fatalf("sqlite store (%s): %v", *dbFlag, err)
	}
	defer store.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	manager := colanalysis.NewManager(tables, caller, store)
	in := bufio.NewReader(os.Stdin)

	sess, err := manager.Start(ctx, colanalysis.StartInput{
		CaseCitation: *caseFlag,
		FullText:     string(fullText),
		Username:     *userFlag,
		UserEmail:    *emailFlag,
		Model:        caller.Model(),
	})
	if err != nil {
		log.Fatalf("start: %v", err)
	}

	fmt.Printf("Detected jurisdiction: %s (%s), legal system: %s\n",
		sess.PreciseJurisdiction, sess.JurisdictionCode, sess.LegalSystem)
	name := promptLine(in, "Jurisdiction override (enter to accept): ")
	system := promptLine(in, "Legal system override [civil-law/common-law] (enter to accept): ")
	score := promptScore(in, "Confidence in the jurisdiction (0-100): ")

	order, err := manager.CommitJurisdiction(sess.ID, colanalysis.JurisdictionDecision{
		Name:        name,
		LegalSystem: refdata.LegalSystem(system),
		Score:       score,
	})
	if err != nil {
		log.Fatalf("commit jurisdiction: %v", err)
	}
	fmt.Printf("Stage sequence (%d stages): %v\n", len(order), order)

	for i, stage := range order {
		fmt.Printf("\n--- Stage %d/%d: %s ---\n", i+1, len(order), stage)

		state, err := manager.RunStage(ctx, sess.ID)
		if err != nil {
			log.Fatalf("%s: %v", stage, err)
		}
		fmt.Println(latestGeneration(state, stage))

		if err := manager.SubmitFirstScore(sess.ID, promptScore(in, "Score this output (0-100): ")); err != nil {
			log.Fatalf("%s: %v", stage, err)
		}

		for {
			feedback := promptLine(in, "Feedback for regeneration (enter to keep): ")
			if feedback == "" {
				break
			}
			state, err = manager.SubmitFeedback(ctx, sess.ID, feedback)
			if err != nil {
				log.Printf("%s: %v", stage, err)
				continue
			}
			fmt.Println(latestGeneration(state, stage))
		}

		final := promptLine(in, "Final text (enter to commit the shown output): ")
		if final == "" {
			final = latestGeneration(state, stage)
		}
		if _, err := manager.CommitStage(ctx, sess.ID, final); err != nil {
			log.Fatalf("%s: %v", stage, err)
		}
	}

	state, err := manager.GetState(sess.ID)
	if err != nil {
		log.Fatalf("state: %v", err)
	}
	if err := os.WriteFile(*outFlag, []byte(colanalysis.BuildReport(state)), 0o644); err != nil {
		log.Fatalf("write report: %v", err)
	}
	fmt.Printf("\nAnalysis complete. Report written to %s\n", *outFlag)
}

func latestGeneration(s *colanalysis.Session, stage colanalysis.StageName) string {
	rec, ok := s.Stages[stage]
	if !ok || len(rec.Generations) == 0 {
		return ""
	}
	return rec.Generations[len(rec.Generations)-1]
}

func promptLine(in *bufio.Reader, prompt string) string {
	fmt.Print(prompt)
	line, err := in.ReadString('\n')
	if err != nil {
		return strings.TrimSpace(line)
	}
	return strings.TrimSpace(line)
}

func promptScore(in *bufio.Reader, prompt string) int {
	for {
		raw := promptLine(in, prompt)
		v, err := strconv.Atoi(raw)
		if err == nil && v >= 0 && v <= 100 {
			return v
		}
		fmt.Println("enter an integer between 0 and 100")
	}
}
