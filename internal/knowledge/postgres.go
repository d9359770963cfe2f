package knowledge

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"log/slog"

	"github.com/lib/pq"

	"symptombot/internal/domain"
	"symptombot/internal/postgres"
)

//go:embed schema.sql
var schemaSQL string

// Store keeps the catalog in PostgreSQL. Tables are created by Migrate.
type Store struct {
	db     *postgres.Client
	logger *slog.Logger
}

func NewStore(db *postgres.Client) *Store {
	return &Store{
		db:     db,
		logger: slog.Default().With("component", "knowledge-store"),
	}
}

// Migrate creates the catalog tables if they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.DB.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("applying knowledge schema: %w", err)
	}
	return nil
}

// Load reads the catalog, ordering symptoms by their stored position.
func (s *Store) Load(ctx context.Context) (*domain.KnowledgeBase, error) {
	b := NewBuilder()

	rows, err := s.db.DB.QueryContext(ctx,
		`SELECT s.name, d.disease
		   FROM symptoms s
		   LEFT JOIN symptom_diseases d ON d.symptom = s.name
		  ORDER BY s.position, d.position`)
	if err != nil {
		return nil, fmt.Errorf("querying symptoms: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var name string
		var disease sql.NullString
		if err := rows.Scan(&name, &disease); err != nil {
			return nil, fmt.Errorf("scanning symptom row: %w", err)
		}
		var diseases []string
		if disease.Valid {
			diseases = append(diseases, disease.String)
		}
		if err := b.AddSymptom(name, diseases...); err != nil {
			return nil, err
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating symptoms: %w", err)
	}

	infoRows, err := s.db.DB.QueryContext(ctx,
		`SELECT disease, generic_medicine, home_remedy FROM disease_info`)
	if err != nil {
		return nil, fmt.Errorf("querying disease info: %w", err)
	}
	defer infoRows.Close()
	for infoRows.Next() {
		var disease string
		var r domain.Remedies
		if err := infoRows.Scan(&disease, pq.Array(&r.GenericMedicines), pq.Array(&r.HomeRemedies)); err != nil {
			return nil, fmt.Errorf("scanning disease info row: %w", err)
		}
		b.SetRemedies(disease, r)
	}
	if err := infoRows.Err(); err != nil {
		return nil, fmt.Errorf("iterating disease info: %w", err)
	}

	kb := b.Build()
	s.logger.Info("knowledge base loaded", "symptoms", len(kb.Symptoms), "diseases", len(kb.Info))
	return kb, nil
}

// Save replaces the stored catalog with kb in a single transaction.
func (s *Store) Save(ctx context.Context, kb *domain.KnowledgeBase) error {
	err := s.db.InTx(ctx, func(tx *sql.Tx) error {
		for _, table := range []string{"symptom_diseases", "symptoms", "disease_info"} {
			if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
				return fmt.Errorf("clearing %s: %w", table, err)
			}
		}
		for i, sym := range kb.Symptoms {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO symptoms (position, name) VALUES ($1, $2)`, i, string(sym)); err != nil {
				return fmt.Errorf("inserting symptom %q: %w", sym, err)
			}
			for j, d := range kb.Diseases[sym] {
				if _, err := tx.ExecContext(ctx,
					`INSERT INTO symptom_diseases (symptom, position, disease) VALUES ($1, $2, $3)`,
					string(sym), j, string(d)); err != nil {
					return fmt.Errorf("inserting disease %q for %q: %w", d, sym, err)
				}
			}
		}
		for d, r := range kb.Info {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO disease_info (disease, generic_medicine, home_remedy) VALUES ($1, $2, $3)`,
				string(d), pq.Array(nonNil(r.GenericMedicines)), pq.Array(nonNil(r.HomeRemedies))); err != nil {
				return fmt.Errorf("inserting info for %q: %w", d, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.logger.Info("knowledge base saved", "symptoms", len(kb.Symptoms), "diseases", len(kb.Info))
	return nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
