package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/cv-screener/internal/documents"
	"github.com/spigell/cv-screener/internal/logger"
	"github.com/spigell/cv-screener/internal/screening"
)

const (
	PromptShowBoth         = "Show requirements and screening result"
	PromptShowRequirements = "Show requirements"
	PromptShowAssessment   = "Show screening result"
	PromptDumpToFile       = "Dump result to file"
	PromptExit             = "Exit"
)

var errExit = errors.New("exit requested")

var displayPrompt = promptui.Select{
	Label: "What next?",
	Items: []string{PromptShowBoth, PromptShowRequirements, PromptShowAssessment, PromptDumpToFile, PromptExit},
}

var screenCmd = &cobra.Command{
	Use:   "screen [CV files...]",
	Short: "Screen candidate CVs against a job description",
	Long: `Screen extracts the requirements of a job description and assesses every
candidate CV against them in a single comparison table.

CV files may be plain text, markdown, PDF or DOCX. Pasted CV texts given with
--cv-text come before the files in the table.`,
	Run: func(cmd *cobra.Command, args []string) {
		screen(cmd, args)
	},
}

func init() {
	rootCmd.AddCommand(screenCmd)

	screenCmd.Flags().StringP("job-file", "f", "", "file with the job description (text, markdown, PDF or DOCX)")
	screenCmd.Flags().String("job-text", "", "job description as plain text")
	screenCmd.Flags().StringArray("cv-text", nil, "candidate CV as plain text, may be repeated")
	screenCmd.Flags().StringP("output", "o", "", "write the markdown result to this file")
	screenCmd.Flags().BoolP("yes", "y", false, "do not ask for confirmation and print the result")
}

func screen(cmd *cobra.Command, args []string) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	logger.Info("starting the cv-screener", zap.String("version", version))

	jobText, err := readJobText(ctx, cmd)
	if err != nil {
		logger.Fatal("reading the job description", zap.Error(err))
	}

	cvTexts, _ := cmd.Flags().GetStringArray("cv-text")
	candidates, err := collectCandidates(ctx, cvTexts, args)
	if err != nil {
		logger.Fatal("reading candidate CVs", zap.Error(err))
	}

	if len(candidates) == 0 {
		logger.Fatal("nothing to screen", zap.String("hint", "pass CV files as arguments or use --cv-text"))
	}

	autoApprove, _ := cmd.Flags().GetBool("yes")
	if !autoApprove {
		confirm := promptui.Prompt{
			Label:     fmt.Sprintf("Screen %d candidate(s) against the job description", len(candidates)),
			IsConfirm: true,
		}
		if _, err := confirm.Run(); err != nil {
			logger.Info("exiting", zap.String("reason", "screening not confirmed"))
			return
		}
	}

	pipeline, err := newPipeline(ctx, config.AI, logger)
	if err != nil {
		logger.Fatal("preparing the pipeline", zap.Error(err))
	}

	result, err := pipeline.Run(ctx, jobText, candidates)
	if err != nil {
		logger.Fatal("screening failed", zap.Error(err))
	}

	if output, _ := cmd.Flags().GetString("output"); output != "" {
		if err := os.WriteFile(output, []byte(result.Markdown()), 0o644); err != nil {
			logger.Fatal("writing the result", zap.Error(err), zap.String("filename", output))
		}
		logger.Info("result written", zap.String("filename", output))
	}

	if autoApprove {
		fmt.Fprint(cmd.OutOrStdout(), result.Markdown())
		return
	}

	for {
		_, action, err := displayPrompt.Run()
		if err != nil {
			logger.Fatal("exiting", zap.Error(err))
		}

		if err := handleAction(action, result, cmd.OutOrStdout(), logger); err != nil {
			if errors.Is(err, errExit) {
				return
			}
			logger.Fatal("exiting", zap.Error(err))
		}
	}
}

func handleAction(action string, result *screening.Result, out io.Writer, logger *zap.Logger) error {
	switch action {
	case PromptShowBoth:
		_, err := fmt.Fprint(out, result.Markdown())
		return err
	case PromptShowRequirements:
		_, err := fmt.Fprintln(out, result.Requirements.Markdown())
		return err
	case PromptShowAssessment:
		_, err := fmt.Fprintln(out, result.Assessment.Markdown())
		return err
	case PromptDumpToFile:
		filename, err := dumpToTmpFile(result)
		if err != nil {
			return fmt.Errorf("dump result to file: %w", err)
		}
		logger.Info("dumping result to file", zap.String("filename", filename))
		return nil
	case PromptExit:
		logger.Info("exiting", zap.String("reason", "got exit from prompt"))
		return errExit
	default:
		return fmt.Errorf("invalid action: %s", action)
	}
}

func dumpToTmpFile(result *screening.Result) (string, error) {
	f, err := os.CreateTemp("", app+"-*.md")
	if err != nil {
		return "", err
	}
	defer f.Close()

	if _, err := f.WriteString(result.Markdown()); err != nil {
		return "", err
	}

	return f.Name(), nil
}

func readJobText(ctx context.Context, cmd *cobra.Command) (string, error) {
	file, _ := cmd.Flags().GetString("job-file")
	text, _ := cmd.Flags().GetString("job-text")

	if file != "" && text != "" {
		return "", errors.New("--job-file and --job-text are mutually exclusive")
	}

	if file != "" {
		return documents.ExtractFile(ctx, file)
	}

	return text, nil
}

// collectCandidates keeps pasted texts first, then files in argument order.
func collectCandidates(ctx context.Context, texts []string, files []string) ([]screening.Candidate, error) {
	candidates := make([]screening.Candidate, 0, len(texts)+len(files))

	for i, text := range texts {
		if strings.TrimSpace(text) == "" {
			continue
		}
		candidates = append(candidates, screening.Candidate{
			Label: fmt.Sprintf("pasted CV %d", i+1),
			Text:  text,
		})
	}

	for _, file := range files {
		text, err := documents.ExtractFile(ctx, file)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, screening.Candidate{Label: filepath.Base(file), Text: text})
	}

	return candidates, nil
}
