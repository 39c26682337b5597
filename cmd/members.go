package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/facegate/facegate/internal/config"
	"github.com/facegate/facegate/internal/recognition"
	"github.com/facegate/facegate/internal/store/mysql"
	"github.com/facegate/facegate/internal/store/postgres"
	"github.com/facegate/facegate/internal/tenant"
)

var membersCmd = &cobra.Command{
	Use:   "members",
	Short: "Manage enrolled members",
}

var membersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List enrolled members for a tenant",
	RunE:  runMembersList,
}

var membersImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Import members from the legacy MySQL system or a JSON file",
	Long: `Import enrolled members into a tenant's roster. With --legacy the
members are read from the legacy MySQL attendance database (LEGACY_MYSQL_DSN);
with --file from a JSON array of {name, status, embedding} objects.
Imported legacy members default to allowed status.`,
	RunE: runMembersImport,
}

func init() {
	rootCmd.AddCommand(membersCmd)
	membersCmd.AddCommand(membersListCmd)
	membersCmd.AddCommand(membersImportCmd)

	membersCmd.PersistentFlags().String("org", "", "Tenant org id (empty for the legacy scope)")
	membersImportCmd.Flags().Bool("legacy", false, "Import from the legacy MySQL database")
	membersImportCmd.Flags().String("file", "", "Import from a JSON file")
}

// scopeFromFlag resolves the --org flag into a tenant scope.
func scopeFromFlag(cmd *cobra.Command) (tenant.Scope, error) {
	org := mustGetString(cmd, "org")
	if org == "" {
		return tenant.Legacy(), nil
	}
	return tenant.For(org)
}

func openPool(cfg *config.Config) (*postgres.Pool, error) {
	if cfg.Database.URL == "" {
		return nil, errors.New("DATABASE_URL environment variable is required")
	}
	return postgres.NewPool(&cfg.Database)
}

func runMembersList(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	scope, err := scopeFromFlag(cmd)
	if err != nil {
		return err
	}

	pool, err := openPool(cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	members, err := postgres.NewMemberRepository(pool).List(ctx, scope)
	if err != nil {
		return fmt.Errorf("listing members: %w", err)
	}

	fmt.Printf("%d member(s) in %s\n", len(members), scope)
	for _, m := range members {
		embedded := " "
		if m.HasEmbedding() {
			embedded = "*"
		}
		fmt.Printf("  [%s] %s  %-8s %s\n", embedded, m.ID, m.Status, m.Name)
	}
	return nil
}

// importFile is the JSON shape accepted by members import --file.
type importFile []struct {
	Name      string    `json:"name"`
	Status    string    `json:"status"`
	Embedding []float32 `json:"embedding"`
}

func loadImportMembers(ctx context.Context, cmd *cobra.Command, cfg *config.Config) ([]recognition.Member, error) {
	fromLegacy := mustGetBool(cmd, "legacy")
	file := mustGetString(cmd, "file")
	if fromLegacy == (file != "") {
		return nil, errors.New("exactly one of --legacy or --file is required")
	}

	if fromLegacy {
		if cfg.LegacyDB.DSN == "" {
			return nil, errors.New("LEGACY_MYSQL_DSN environment variable is required")
		}
		legacy, err := mysql.NewPool(cfg.LegacyDB.DSN)
		if err != nil {
			return nil, err
		}
		defer legacy.Close()

		faces, err := legacy.ListFaces(ctx)
		if err != nil {
			return nil, err
		}
		members := make([]recognition.Member, 0, len(faces))
		for _, f := range faces {
			members = append(members, f.ToMember())
		}
		return members, nil
	}

	data, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", file, err)
	}
	var entries importFile
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", file, err)
	}

	members := make([]recognition.Member, 0, len(entries))
	for _, e := range entries {
		status := recognition.MemberStatus(e.Status)
		if e.Status == "" {
			status = recognition.StatusAllowed
		}
		if !recognition.ValidStatus(status) {
			return nil, fmt.Errorf("unknown status %q for member %q", e.Status, e.Name)
		}
		members = append(members, recognition.Member{
			Name:      e.Name,
			Status:    status,
			Embedding: e.Embedding,
		})
	}
	return members, nil
}

func runMembersImport(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	scope, err := scopeFromFlag(cmd)
	if err != nil {
		return err
	}

	ctx := context.Background()
	members, err := loadImportMembers(ctx, cmd, cfg)
	if err != nil {
		return err
	}
	if len(members) == 0 {
		fmt.Println("Nothing to import")
		return nil
	}

	pool, err := openPool(cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := pool.Migrate(ctx, cfg.Embedding.Dim); err != nil {
		return fmt.Errorf("migrating schema: %w", err)
	}

	repo := postgres.NewMemberRepository(pool)
	bar := progressbar.Default(int64(len(members)), "importing members")

	imported, skipped := 0, 0
	for _, m := range members {
		if _, err := repo.Create(ctx, scope, m); err != nil {
			fmt.Printf("\nWarning: skipping %q: %v\n", m.Name, err)
			skipped++
		} else {
			imported++
		}
		_ = bar.Add(1)
	}

	// Built after the bulk load so ivfflat picks sensible lists.
	if err := pool.CreateVectorIndex(ctx); err != nil {
		fmt.Printf("Warning: creating vector index: %v\n", err)
	}

	fmt.Printf("Imported %d member(s) into %s (%d skipped)\n", imported, scope, skipped)
	return nil
}
