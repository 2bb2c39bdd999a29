package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dataconfessional/confessional/internal/config"
	"github.com/dataconfessional/confessional/internal/datasource"
	"github.com/dataconfessional/confessional/internal/engine"
	"github.com/dataconfessional/confessional/internal/secrets"
)

// --- health ---

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check the local inference server and the active pack",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		h, err := a.engine.ComputeHealth(cmd.Context())
		if err != nil {
			return err
		}

		asJSON, _ := cmd.Flags().GetBool("json")
		if asJSON {
			return printJSON(cmd.OutOrStdout(), h)
		}
		printHealth(h)
		return nil
	},
}

func printHealth(h engine.Health) {
	if h.OllamaAvailable {
		printStatus("Ollama", "running")
	} else {
		printStatus("Ollama", "not reachable")
	}
	if h.ActivePackID != nil {
		printStatus("Active pack", "%s", *h.ActivePackID)
	} else {
		printStatus("Active pack", "none")
	}
	if h.EngineConfigured {
		printStatus("Engine", "ready")
	} else {
		printStatus("Engine", "not configured")
	}
	if len(h.MissingModels) > 0 {
		printStatus("Missing models", "%s", strings.Join(h.MissingModels, ", "))
	}
	if h.GPUSummary != nil {
		if h.GPUSummary.VRAMGB != nil {
			printStatus("GPU", "%s (%.1f GB)", h.GPUSummary.Vendor, *h.GPUSummary.VRAMGB)
		} else {
			printStatus("GPU", "%s", h.GPUSummary.Vendor)
		}
	}
}

func init() {
	healthCmd.Flags().Bool("json", false, "print health as JSON")
}

// --- packs ---

var packsCmd = &cobra.Command{
	Use:   "packs",
	Short: "List configured model packs",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		packs, err := a.engine.Packs()
		if err != nil {
			return err
		}
		if len(packs) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No packs configured.")
			return nil
		}

		out := cmd.OutOrStdout()
		for _, p := range packs {
			marker := " "
			if p.Active {
				marker = "*"
			}
			fmt.Fprintf(out, "%s %s  %s\n", marker, colorize(colorBold, p.ID), p.Label)
			fmt.Fprintf(out, "    analysis: %s  report: %s  embedding: %s\n", p.AnalysisModel, p.ReportModel, p.EmbeddingModel)
		}
		return nil
	},
}

// --- install ---

var installCmd = &cobra.Command{
	Use:   "install <pack>",
	Short: "Pull every model of a pack and make it active",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(engine.WithInstallObserver(printInstallStep))
		if err != nil {
			return err
		}
		defer a.Close()

		h, err := a.engine.Install(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		printSuccess("Pack %s installed", args[0])
		printHealth(h)
		return nil
	},
}

func printInstallStep(s engine.InstallStep) {
	switch s.State {
	case engine.StepPulling:
		printStep("[%d/%d] pulling %s", s.Index, s.Total, s.Model)
	case engine.StepPulled:
		printSuccess("[%d/%d] %s", s.Index, s.Total, s.Model)
	}
}

// --- chat ---

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Ask a question about a data summary",
	Long: `Ask a question about a data summary and stream the answer.

Examples:
  confessional chat --project "Acme churn" --question "Why did churn spike?" --context-file summary.txt
  confessional chat --role gossip --audience exec --project Q3 --question "What changed?" --context "rows: 1200"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		role, _ := cmd.Flags().GetString("role")
		question, _ := cmd.Flags().GetString("question")
		project, _ := cmd.Flags().GetString("project")
		audience, _ := cmd.Flags().GetString("audience")

		summary, err := summaryFromFlags(cmd, "context", "context-file")
		if err != nil {
			return err
		}

		req := engine.ChatRequest{
			Role:           role,
			Question:       question,
			ContextSummary: summary,
			ProjectMeta:    engine.ProjectMeta{Name: project, Audience: audience},
		}
		if err := checkChatRequest(req); err != nil {
			return err
		}

		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		out := cmd.OutOrStdout()
		_, err = a.engine.Chat(cmd.Context(), req, engine.ListenerFuncs{
			OnIncrement: func(text string) error {
				_, err := io.WriteString(out, text)
				return err
			},
			OnDone: func(string) error {
				_, err := fmt.Fprintln(out)
				return err
			},
		})
		return err
	},
}

func checkChatRequest(req engine.ChatRequest) error {
	if req.Question == "" {
		return errors.New("--question is required")
	}
	if req.ProjectMeta.Name == "" {
		return errors.New("--project is required")
	}
	if req.Role != engine.RoleAnalysis && req.Role != engine.RoleGossip {
		return fmt.Errorf("--role must be %s or %s", engine.RoleAnalysis, engine.RoleGossip)
	}
	return checkAudience(req.ProjectMeta.Audience)
}

func checkAudience(a string) error {
	switch a {
	case "self", "team", "exec":
		return nil
	}
	return fmt.Errorf("--audience must be one of self, team, exec")
}

// summaryFromFlags returns the inline text flag, or the loaded file when
// the file flag is set. Setting both is an error.
func summaryFromFlags(cmd *cobra.Command, textFlag, fileFlag string) (string, error) {
	text, _ := cmd.Flags().GetString(textFlag)
	file, _ := cmd.Flags().GetString(fileFlag)
	if text != "" && file != "" {
		return "", fmt.Errorf("--%s and --%s are mutually exclusive", textFlag, fileFlag)
	}
	if file == "" {
		return text, nil
	}
	return datasource.Load(file)
}

func init() {
	chatCmd.Flags().String("role", engine.RoleAnalysis, "answer style: analysis or gossip")
	chatCmd.Flags().String("question", "", "question to answer")
	chatCmd.Flags().String("project", "", "project name")
	chatCmd.Flags().String("audience", "self", "intended audience: self, team or exec")
	chatCmd.Flags().String("context", "", "data summary text")
	chatCmd.Flags().String("context-file", "", "read the data summary from a text or PDF file")
}

// --- report ---

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Draft a markdown report from a data summary",
	RunE: func(cmd *cobra.Command, args []string) error {
		template, _ := cmd.Flags().GetString("template")
		audience, _ := cmd.Flags().GetString("audience")
		output, _ := cmd.Flags().GetString("output")

		summary, err := summaryFromFlags(cmd, "data", "data-file")
		if err != nil {
			return err
		}
		if summary == "" {
			return errors.New("one of --data or --data-file is required")
		}
		if err := checkAudience(audience); err != nil {
			return err
		}

		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		printStep("Drafting %s report...", template)
		resp, err := a.engine.GenerateReport(cmd.Context(), engine.ReportRequest{
			TemplateType: template,
			Audience:     audience,
			DataSummary:  summary,
		})
		if err != nil {
			return err
		}

		if output == "" {
			fmt.Fprintln(cmd.OutOrStdout(), resp.Markdown)
			return nil
		}
		if err := os.WriteFile(output, []byte(resp.Markdown+"\n"), 0o644); err != nil {
			return fmt.Errorf("writing report: %w", err)
		}
		printSuccess("Report by %s written to %s", resp.ModelName, output)
		return nil
	},
}

func init() {
	reportCmd.Flags().String("template", "summary", "report template type")
	reportCmd.Flags().String("audience", "self", "intended audience: self, team or exec")
	reportCmd.Flags().String("data", "", "data summary text")
	reportCmd.Flags().String("data-file", "", "read the data summary from a text or PDF file")
	reportCmd.Flags().String("output", "", "write the report to this file instead of stdout")
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show settings and the engine configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		for _, k := range config.ShowAll(cfg) {
			fmt.Fprintf(out, "  %s = %s\n", colorize(colorBold, k.Key), k.Value)
		}

		ec, err := config.NewFileStore(cfg.EngineConfigPath()).Load()
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "\n%s\n", colorize(colorBold, cfg.EngineConfigPath()))
		return printJSON(out, ec)
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a settings value",
	Long:  "Set a settings value. Valid keys: " + strings.Join(config.ValidKeys(), ", "),
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			return err
		}

		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

var configCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate the engine configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		ec, err := config.NewFileStore(cfg.EngineConfigPath()).Load()
		if err != nil {
			return err
		}
		if err := ec.Validate(); err != nil {
			for _, line := range strings.Split(err.Error(), "\n") {
				printError("%s", line)
			}
			return errors.New("engine configuration is invalid")
		}
		printSuccess("Engine configuration is valid (%d packs)", len(ec.Packs))
		return nil
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print configuration file locations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		printStatus("Settings", "%s", config.SettingsPath())
		printStatus("Engine", "%s", cfg.EngineConfigPath())
		printStatus("Data dir", "%s", cfg.Storage.DataDir)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configCheckCmd)
	configCmd.AddCommand(configPathCmd)
}

// --- credential ---

var credentialCmd = &cobra.Command{
	Use:   "credential",
	Short: "Manage the stored API key",
}

var credentialSetCmd = &cobra.Command{
	Use:   "set <secret>",
	Short: "Store the API key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSecrets()
		if err != nil {
			return err
		}
		if err := s.Set(secrets.APIKeyID, args[0]); err != nil {
			return err
		}
		printSuccess("API key stored")
		return nil
	},
}

var credentialGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Print the stored API key",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSecrets()
		if err != nil {
			return err
		}
		v, err := s.Get(secrets.APIKeyID)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), v)
		return nil
	},
}

var credentialHasCmd = &cobra.Command{
	Use:   "has",
	Short: "Report whether an API key is stored",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSecrets()
		if err != nil {
			return err
		}
		if !s.Has(secrets.APIKeyID) {
			printWarning("No API key stored")
			return errors.New("no API key stored")
		}
		printSuccess("API key stored")
		return nil
	},
}

var credentialDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Delete the stored API key",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSecrets()
		if err != nil {
			return err
		}
		if err := s.Delete(secrets.APIKeyID); err != nil {
			return err
		}
		printSuccess("API key deleted")
		return nil
	},
}

func openSecrets() (*secrets.Store, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return secrets.Default(cfg.SecretsDir()), nil
}

func init() {
	credentialCmd.AddCommand(credentialSetCmd)
	credentialCmd.AddCommand(credentialGetCmd)
	credentialCmd.AddCommand(credentialHasCmd)
	credentialCmd.AddCommand(credentialDeleteCmd)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
