package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

var errNoSettings = errors.New("settings service not configured")

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Show or change settings",
	Long: `Show or change the AI providers and the retrieval, chunking and session options.

Settings live in ~/.sercha-rag/config.toml. Environment variables, and a .env
file in the working directory, override them for a single run.`,
	RunE: runSettingsShow,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective settings",
	Args:  cobra.NoArgs,
	RunE:  runSettingsShow,
}

var settingsSetCmd = &cobra.Command{
	Use:   "set KEY VALUE",
	Short: "Change one setting",
	Long: `Change one setting. 'sercha-rag settings keys' lists the keys.

  sercha-rag settings set retrieval.per_retriever_k 8
  sercha-rag settings set retrieval.order dense,lexical
  sercha-rag settings set session.allowed_types pdf,md,html`,
	Args: cobra.ExactArgs(2),
	RunE: runSettingsSet,
}

var settingsKeysCmd = &cobra.Command{
	Use:   "keys",
	Short: "List the keys accepted by set",
	Args:  cobra.NoArgs,
	RunE:  runSettingsKeys,
}

var settingsSetKeyCmd = &cobra.Command{
	Use:       "set-key embedding|llm",
	Short:     "Store an API key without echoing it",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"embedding", "llm"},
	RunE:      runSettingsSetKey,
}

var settingsEmbeddingCmd = &cobra.Command{
	Use:   "embedding",
	Short: "Choose the embedding provider",
	Long:  `Choose the provider that embeds sentences for chunking and chunks for dense retrieval.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if settingsService == nil {
			return errNoSettings
		}
		return runProviderWizard(cmd, embeddingWizard())
	},
}

var settingsLLMCmd = &cobra.Command{
	Use:   "llm",
	Short: "Choose the LLM provider",
	Long:  `Choose the provider that rewrites follow-up questions and writes answers.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if settingsService == nil {
			return errNoSettings
		}
		return runProviderWizard(cmd, llmWizard())
	},
}

func init() {
	settingsCmd.AddCommand(
		settingsShowCmd,
		settingsSetCmd,
		settingsKeysCmd,
		settingsSetKeyCmd,
		settingsEmbeddingCmd,
		settingsLLMCmd,
	)
	rootCmd.AddCommand(settingsCmd)
}

// field is one labelled line of settings output.
type field struct {
	label string
	value any
}

func printSection(w io.Writer, title string, fields ...field) {
	fmt.Fprintf(w, "[%s]\n", title)
	for _, f := range fields {
		fmt.Fprintf(w, "  %s: %v\n", f.label, f.value)
	}
	fmt.Fprintln(w)
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errNoSettings
	}

	s, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	w := cmd.OutOrStdout()
	fmt.Fprint(w, "Current Settings\n================\n\n")

	emb := []field{{"Provider", s.Embedding.Provider.Description()}, {"Model", s.Embedding.Model}}
	emb = append(emb, connectionFields(s.Embedding.Provider, s.Embedding.BaseURL, s.Embedding.APIKey)...)
	emb = append(emb, field{"Status", configuredStatus(s.Embedding.IsConfigured())})
	printSection(w, "Embedding", emb...)

	llm := []field{{"Provider", s.LLM.Provider.Description()}, {"Model", s.LLM.Model}}
	llm = append(llm, connectionFields(s.LLM.Provider, s.LLM.BaseURL, s.LLM.APIKey)...)
	llm = append(llm,
		field{"Max tokens", s.LLM.MaxTokens},
		field{"Temperature", strconv.FormatFloat(s.LLM.Temperature, 'g', -1, 64)},
		field{"Status", configuredStatus(s.LLM.IsConfigured())},
	)
	printSection(w, "LLM", llm...)

	printSection(w, "Retrieval",
		field{"Per retriever k", s.Retrieval.PerRetrieverK},
		field{"Combined limit", s.Retrieval.CombinedLimit},
		field{"Order", strings.Join(s.Retrieval.Order, ", ")},
	)
	printSection(w, "Chunking",
		field{"Breakpoint percentile", strconv.FormatFloat(s.Chunking.BreakpointPercentile, 'g', -1, 64)},
		field{"Buffer size", s.Chunking.BufferSize},
	)
	printSection(w, "Conversation",
		field{"History messages", s.Conversation.HistoryMessages},
		field{"Rewrite timeout", s.Conversation.RewriteTimeout},
	)
	printSection(w, "Session",
		field{"Folder", s.Session.Folder},
		field{"Max file size", fmt.Sprintf("%d MB", s.Session.MaxFileSizeMB)},
		field{"Allowed types", strings.Join(s.Session.AllowedTypes, ", ")},
	)
	printSection(w, "Log", field{"Level", s.Log.Level})

	if err := settingsService.Validate(); err != nil {
		fmt.Fprintf(w, "Warning: %v\n", err)
		fmt.Fprintln(w, "Fix it with 'sercha-rag settings set KEY VALUE'.")
		return nil
	}
	fmt.Fprintln(w, "Configuration is valid.")
	return nil
}

// connectionFields shows the base URL of local providers and a masked key
// for hosted ones.
func connectionFields(p domain.AIProvider, baseURL, apiKey string) []field {
	var fields []field
	if p.IsLocal() {
		fields = append(fields, field{"Base URL", baseURL})
	}
	if p.RequiresAPIKey() {
		key := "(not set)"
		if apiKey != "" {
			key = maskAPIKey(apiKey)
		}
		fields = append(fields, field{"API Key", key})
	}
	return fields
}

func configuredStatus(ok bool) string {
	if ok {
		return "configured"
	}
	return "not configured"
}

func runSettingsSet(cmd *cobra.Command, args []string) error {
	if settingsService == nil {
		return errNoSettings
	}

	key, value := args[0], args[1]
	if err := settingsService.Set(key, value); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}

	if strings.HasSuffix(key, ".api_key") {
		value = maskAPIKey(value)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Set %s = %s\n", key, value)
	return nil
}

func runSettingsKeys(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errNoSettings
	}

	fmt.Fprintln(cmd.OutOrStdout(), strings.Join(settingsService.Keys(), "\n"))
	return nil
}

func runSettingsSetKey(cmd *cobra.Command, args []string) error {
	if settingsService == nil {
		return errNoSettings
	}

	target := args[0]
	if target != "embedding" && target != "llm" {
		return fmt.Errorf("unknown target %q (want embedding or llm)", target)
	}

	w := cmd.OutOrStdout()
	fmt.Fprint(w, "Enter API key: ")
	key := readPassword(bufio.NewReader(cmd.InOrStdin()))
	fmt.Fprintln(w)
	if key == "" {
		return errors.New("no API key entered")
	}

	if err := settingsService.Set(target+".api_key", key); err != nil {
		return fmt.Errorf("failed to save API key: %w", err)
	}
	fmt.Fprintf(w, "Saved %s API key %s\n", target, maskAPIKey(key))
	return nil
}

// providerWizard describes the interactive setup of one provider role.
type providerWizard struct {
	role      string
	providers []domain.AIProvider
	models    map[domain.AIProvider]string
	save      func(p domain.AIProvider, model, apiKey string) error
	check     func(ctx context.Context) error
}

func embeddingWizard() providerWizard {
	return providerWizard{
		role:      "Embedding",
		providers: domain.AllEmbeddingProviders(),
		models:    domain.DefaultEmbeddingModels(),
		save:      settingsService.SetEmbeddingProvider,
		check:     settingsService.ValidateEmbeddingConfig,
	}
}

func llmWizard() providerWizard {
	return providerWizard{
		role:      "LLM",
		providers: domain.AllLLMProviders(),
		models:    domain.DefaultLLMModels(),
		save:      settingsService.SetLLMProvider,
		check:     settingsService.ValidateLLMConfig,
	}
}

// runProviderWizard asks for a provider, a model and, for hosted providers,
// an API key. The saved configuration is then pinged.
func runProviderWizard(cmd *cobra.Command, wz providerWizard) error {
	w := cmd.OutOrStdout()
	in := bufio.NewReader(cmd.InOrStdin())

	fmt.Fprintf(w, "Select %s Provider\n", wz.role)
	for i, p := range wz.providers {
		fmt.Fprintf(w, "  %d. %s\n", i+1, p.Description())
	}
	fmt.Fprint(w, "\nEnter choice [1]: ")
	provider := wz.providers[parseChoice(readLine(in), len(wz.providers), 1)-1]

	model := wz.models[provider]
	fmt.Fprintf(w, "Enter model name [%s]: ", model)
	if typed := readLine(in); typed != "" {
		model = typed
	}

	var apiKey string
	if provider.RequiresAPIKey() {
		fmt.Fprint(w, "Enter API key: ")
		apiKey = readPassword(in)
		fmt.Fprintln(w)
		if apiKey == "" {
			return errors.New("API key is required for this provider")
		}
	}

	if err := wz.save(provider, model, apiKey); err != nil {
		return fmt.Errorf("failed to configure %s provider: %w", wz.role, err)
	}

	fmt.Fprint(w, "Validating configuration... ")
	if err := wz.check(cmd.Context()); err != nil {
		fmt.Fprintf(w, "FAILED: %v\n", err)
		return fmt.Errorf("%s configuration validation failed: %w", wz.role, err)
	}
	fmt.Fprintln(w, "OK")
	fmt.Fprintf(w, "%s provider configured: %s (%s)\n\n", wz.role, provider.Description(), model)
	return nil
}

func readLine(in *bufio.Reader) string {
	line, _ := in.ReadString('\n')
	return strings.TrimSpace(line)
}

// parseChoice turns a 1-based menu answer into an index, falling back to
// def for blank or out-of-range input.
func parseChoice(input string, n, def int) int {
	choice, err := strconv.Atoi(strings.TrimSpace(input))
	if err != nil || choice < 1 || choice > n {
		return def
	}
	return choice
}

// readPassword reads without echo on a terminal and reads a plain line
// otherwise, which keeps piped input working.
func readPassword(in *bufio.Reader) string {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		if secret, err := term.ReadPassword(fd); err == nil {
			return strings.TrimSpace(string(secret))
		}
	}
	return readLine(in)
}

// maskAPIKey keeps the first and last four characters of keys longer than eight.
func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
