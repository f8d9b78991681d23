// Package sqlite persists experiment runs, prompts, responses,
// hallucination annotations and retrieval snapshots. All writes are
// single-row inserts; annotation attachment is itself an insert, so no
// row is ever updated in place.
package sqlite

import (
	"database/sql"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/halluc-lab/backend/internal/storage/models"
	"github.com/halluc-lab/backend/pkg/logger"
)

// ErrStorage marks every persistence failure so callers can match the
// whole class with errors.Is.
var ErrStorage = errors.New("storage failure")

// ErrNotFound reports a lookup for a row that does not exist.
var ErrNotFound = errors.New("not found")

type Client struct {
	db *sql.DB
}

func NewClient(dbPath string) (*Client, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, storageErr("failed to open database", err)
	}

	// Pragmas apply per connection, and an in-memory database exists
	// per connection, so the pool must stay at one.
	db.SetMaxOpenConns(1)

	if _, err = db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, storageErr("failed to enable foreign keys", err)
	}

	if _, err = db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		return nil, storageErr("failed to enable WAL mode", err)
	}

	logger.Info("SQLite client initialized", zap.String("path", dbPath))

	return &Client{db: db}, nil
}

func (c *Client) Close() error {
	return c.db.Close()
}

func (c *Client) InitSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS experiments (
		experiment_id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		description TEXT,
		mitigation_strategy TEXT NOT NULL,
		model_name TEXT,
		temperature REAL,
		max_tokens INTEGER,
		notes TEXT,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_experiments_strategy ON experiments(mitigation_strategy);
	CREATE INDEX IF NOT EXISTS idx_experiments_created ON experiments(created_at);

	CREATE TABLE IF NOT EXISTS prompts (
		prompt_id INTEGER PRIMARY KEY AUTOINCREMENT,
		experiment_id INTEGER NOT NULL,
		prompt_text TEXT NOT NULL,
		category TEXT,
		expected_hallucination INTEGER,
		created_at INTEGER NOT NULL,
		FOREIGN KEY (experiment_id) REFERENCES experiments(experiment_id)
	);
	CREATE INDEX IF NOT EXISTS idx_prompts_experiment ON prompts(experiment_id);
	CREATE INDEX IF NOT EXISTS idx_prompts_category ON prompts(category);

	CREATE TABLE IF NOT EXISTS responses (
		response_id INTEGER PRIMARY KEY AUTOINCREMENT,
		prompt_id INTEGER NOT NULL,
		response_text TEXT NOT NULL,
		latency_ms INTEGER,
		prompt_tokens INTEGER,
		completion_tokens INTEGER,
		total_tokens INTEGER,
		artifact TEXT,
		created_at INTEGER NOT NULL,
		FOREIGN KEY (prompt_id) REFERENCES prompts(prompt_id)
	);
	CREATE INDEX IF NOT EXISTS idx_responses_prompt ON responses(prompt_id);

	CREATE TABLE IF NOT EXISTS annotations (
		annotation_id INTEGER PRIMARY KEY AUTOINCREMENT,
		response_id INTEGER NOT NULL,
		is_hallucination INTEGER NOT NULL,
		hallucination_type TEXT,
		severity TEXT,
		description TEXT,
		evidence TEXT,
		false_claim TEXT,
		created_at INTEGER NOT NULL,
		FOREIGN KEY (response_id) REFERENCES responses(response_id)
	);
	CREATE INDEX IF NOT EXISTS idx_annotations_response ON annotations(response_id);

	CREATE TABLE IF NOT EXISTS rag_context (
		context_id INTEGER PRIMARY KEY AUTOINCREMENT,
		response_id INTEGER NOT NULL,
		documents TEXT NOT NULL,
		num_documents INTEGER,
		created_at INTEGER NOT NULL,
		FOREIGN KEY (response_id) REFERENCES responses(response_id)
	);
	CREATE INDEX IF NOT EXISTS idx_rag_context_response ON rag_context(response_id);
	`

	if _, err := c.db.Exec(schema); err != nil {
		return storageErr("failed to initialize schema", err)
	}

	logger.Info("SQLite schema initialized")
	return nil
}

func (c *Client) CreateExperiment(exp *models.Experiment) (int64, error) {
	query := `
		INSERT INTO experiments (name, description, mitigation_strategy, model_name, temperature, max_tokens, notes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	createdAt := exp.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	result, err := c.db.Exec(
		query,
		exp.Name,
		exp.Description,
		exp.Strategy,
		exp.ModelName,
		exp.Temperature,
		exp.MaxTokens,
		exp.Notes,
		createdAt.Unix(),
	)
	if err != nil {
		return 0, storageErr("failed to insert experiment", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, storageErr("failed to read experiment id", err)
	}

	logger.Info("Experiment created",
		zap.Int64("experiment_id", id),
		zap.String("name", exp.Name),
		zap.String("strategy", exp.Strategy),
	)

	return id, nil
}

func (c *Client) GetExperiment(id int64) (*models.Experiment, error) {
	query := `
		SELECT experiment_id, name, description, mitigation_strategy, model_name, temperature, max_tokens, notes, created_at
		FROM experiments
		WHERE experiment_id = ?
	`

	var exp models.Experiment
	var description, modelName, notes sql.NullString
	var temperature sql.NullFloat64
	var maxTokens sql.NullInt64
	var createdAt int64

	err := c.db.QueryRow(query, id).Scan(
		&exp.ID,
		&exp.Name,
		&description,
		&exp.Strategy,
		&modelName,
		&temperature,
		&maxTokens,
		&notes,
		&createdAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: experiment %d", ErrNotFound, id)
	}
	if err != nil {
		return nil, storageErr("failed to get experiment", err)
	}

	exp.Description = description.String
	exp.ModelName = modelName.String
	exp.Temperature = temperature.Float64
	exp.MaxTokens = int(maxTokens.Int64)
	exp.Notes = notes.String
	exp.CreatedAt = time.Unix(createdAt, 0)

	return &exp, nil
}

func (c *Client) LogPrompt(prompt *models.Prompt) (int64, error) {
	query := `
		INSERT INTO prompts (experiment_id, prompt_text, category, expected_hallucination, created_at)
		VALUES (?, ?, ?, ?, ?)
	`

	var expected interface{}
	if prompt.ExpectedHallucination != nil {
		expected = boolToInt(*prompt.ExpectedHallucination)
	}

	result, err := c.db.Exec(
		query,
		prompt.ExperimentID,
		prompt.Text,
		prompt.Category,
		expected,
		time.Now().Unix(),
	)
	if err != nil {
		return 0, storageErr("failed to insert prompt", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, storageErr("failed to read prompt id", err)
	}

	return id, nil
}

func (c *Client) LogResponse(resp *models.Response) (int64, error) {
	query := `
		INSERT INTO responses (prompt_id, response_text, latency_ms, prompt_tokens, completion_tokens, total_tokens, artifact, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	var artifact interface{}
	if resp.Artifact != "" {
		artifact = resp.Artifact
	}

	result, err := c.db.Exec(
		query,
		resp.PromptID,
		resp.Text,
		resp.LatencyMS,
		resp.PromptTokens,
		resp.CompletionTokens,
		resp.TotalTokens,
		artifact,
		time.Now().Unix(),
	)
	if err != nil {
		return 0, storageErr("failed to insert response", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, storageErr("failed to read response id", err)
	}

	return id, nil
}

func (c *Client) LogAnnotation(a *models.Annotation) (int64, error) {
	query := `
		INSERT INTO annotations (response_id, is_hallucination, hallucination_type, severity, description, evidence, false_claim, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := c.db.Exec(
		query,
		a.ResponseID,
		boolToInt(a.IsHallucination),
		a.Type,
		a.Severity,
		a.Description,
		a.Evidence,
		a.FalseClaim,
		time.Now().Unix(),
	)
	if err != nil {
		return 0, storageErr("failed to insert annotation", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, storageErr("failed to read annotation id", err)
	}

	logger.Info("Annotation logged",
		zap.Int64("response_id", a.ResponseID),
		zap.Bool("is_hallucination", a.IsHallucination),
		zap.String("severity", a.Severity),
	)

	return id, nil
}

func (c *Client) LogRAGContext(rc *models.RAGContext) (int64, error) {
	documentsJSON, err := json.Marshal(rc.Documents)
	if err != nil {
		return 0, storageErr("failed to marshal retrieved documents", err)
	}

	query := `
		INSERT INTO rag_context (response_id, documents, num_documents, created_at)
		VALUES (?, ?, ?, ?)
	`

	result, err := c.db.Exec(
		query,
		rc.ResponseID,
		string(documentsJSON),
		len(rc.Documents),
		time.Now().Unix(),
	)
	if err != nil {
		return 0, storageErr("failed to insert rag context", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, storageErr("failed to read rag context id", err)
	}

	return id, nil
}

// GetExperimentResults returns one row per logged response for the
// experiment, each joined to its prompt and to its annotation when one
// exists. A response can be re-annotated; only the latest annotation
// joins, so the row count always equals the response count.
func (c *Client) GetExperimentResults(experimentID int64) ([]models.ExperimentResult, error) {
	query := `
		SELECT
			e.experiment_id,
			e.name,
			e.mitigation_strategy,
			p.prompt_id,
			p.prompt_text,
			p.category,
			r.response_id,
			r.response_text,
			r.latency_ms,
			r.total_tokens,
			a.is_hallucination,
			a.hallucination_type,
			a.severity,
			r.created_at
		FROM experiments e
		JOIN prompts p ON e.experiment_id = p.experiment_id
		JOIN responses r ON p.prompt_id = r.prompt_id
		LEFT JOIN annotations a ON a.annotation_id = (
			SELECT MAX(annotation_id) FROM annotations WHERE response_id = r.response_id
		)
		WHERE e.experiment_id = ?
		ORDER BY r.response_id
	`

	rows, err := c.db.Query(query, experimentID)
	if err != nil {
		return nil, storageErr("failed to get experiment results", err)
	}
	defer rows.Close()

	var results []models.ExperimentResult
	for rows.Next() {
		var r models.ExperimentResult
		var category sql.NullString
		var isHallucination sql.NullBool
		var hallucinationType, severity sql.NullString
		var createdAt int64

		err := rows.Scan(
			&r.ExperimentID,
			&r.ExperimentName,
			&r.Strategy,
			&r.PromptID,
			&r.PromptText,
			&category,
			&r.ResponseID,
			&r.ResponseText,
			&r.LatencyMS,
			&r.TotalTokens,
			&isHallucination,
			&hallucinationType,
			&severity,
			&createdAt,
		)
		if err != nil {
			return nil, storageErr("failed to scan result row", err)
		}

		r.Category = category.String
		r.CreatedAt = time.Unix(createdAt, 0)
		if isHallucination.Valid {
			r.Annotated = true
			v := isHallucination.Bool
			r.IsHallucination = &v
		}
		if hallucinationType.Valid {
			r.HallucinationType = &hallucinationType.String
		}
		if severity.Valid {
			r.Severity = &severity.String
		}

		results = append(results, r)
	}

	if err := rows.Err(); err != nil {
		return nil, storageErr("failed to iterate result rows", err)
	}

	return results, nil
}

func (c *Client) GetAllExperiments() ([]models.ExperimentSummary, error) {
	query := `
		SELECT
			e.experiment_id,
			e.name,
			e.mitigation_strategy,
			e.created_at,
			COUNT(DISTINCT p.prompt_id),
			COUNT(DISTINCT r.response_id),
			SUM(CASE WHEN a.is_hallucination = 1 THEN 1 ELSE 0 END)
		FROM experiments e
		LEFT JOIN prompts p ON e.experiment_id = p.experiment_id
		LEFT JOIN responses r ON p.prompt_id = r.prompt_id
		LEFT JOIN annotations a ON a.annotation_id = (
			SELECT MAX(annotation_id) FROM annotations WHERE response_id = r.response_id
		)
		GROUP BY e.experiment_id
		ORDER BY e.created_at DESC
	`

	rows, err := c.db.Query(query)
	if err != nil {
		return nil, storageErr("failed to get experiments", err)
	}
	defer rows.Close()

	var summaries []models.ExperimentSummary
	for rows.Next() {
		var s models.ExperimentSummary
		var createdAt int64
		var hallucinations sql.NullInt64

		err := rows.Scan(&s.ID, &s.Name, &s.Strategy, &createdAt, &s.TotalPrompts, &s.TotalResponses, &hallucinations)
		if err != nil {
			return nil, storageErr("failed to scan experiment row", err)
		}

		s.CreatedAt = time.Unix(createdAt, 0)
		s.Hallucinations = int(hallucinations.Int64)
		if s.TotalResponses > 0 {
			s.HallucinationRate = float64(s.Hallucinations) / float64(s.TotalResponses)
		}

		summaries = append(summaries, s)
	}

	if err := rows.Err(); err != nil {
		return nil, storageErr("failed to iterate experiment rows", err)
	}

	return summaries, nil
}

// GetStatistics aggregates annotations by (strategy, category). Groups
// with no annotated responses report a zero rate rather than dividing
// by zero.
func (c *Client) GetStatistics() (*models.Statistics, error) {
	stats := &models.Statistics{}

	err := c.db.QueryRow(`SELECT COUNT(*) FROM experiments`).Scan(&stats.TotalExperiments)
	if err != nil {
		return nil, storageErr("failed to count experiments", err)
	}

	err = c.db.QueryRow(`SELECT COUNT(*) FROM responses`).Scan(&stats.TotalResponses)
	if err != nil {
		return nil, storageErr("failed to count responses", err)
	}

	groupQuery := `
		SELECT
			e.mitigation_strategy,
			COALESCE(p.category, ''),
			COUNT(r.response_id),
			COUNT(a.annotation_id),
			SUM(CASE WHEN a.is_hallucination = 1 THEN 1 ELSE 0 END)
		FROM experiments e
		JOIN prompts p ON e.experiment_id = p.experiment_id
		JOIN responses r ON p.prompt_id = r.prompt_id
		LEFT JOIN annotations a ON a.annotation_id = (
			SELECT MAX(annotation_id) FROM annotations WHERE response_id = r.response_id
		)
		GROUP BY e.mitigation_strategy, p.category
		ORDER BY e.mitigation_strategy, p.category
	`

	rows, err := c.db.Query(groupQuery)
	if err != nil {
		return nil, storageErr("failed to get statistics", err)
	}
	defer rows.Close()

	groupIndex := make(map[string]int)
	for rows.Next() {
		var g models.StatGroup
		var hallucinations sql.NullInt64

		err := rows.Scan(&g.Strategy, &g.Category, &g.Responses, &g.Annotated, &hallucinations)
		if err != nil {
			return nil, storageErr("failed to scan statistics row", err)
		}

		g.Hallucinations = int(hallucinations.Int64)
		if g.Annotated > 0 {
			g.HallucinationRate = float64(g.Hallucinations) / float64(g.Annotated)
		}
		g.SeverityCounts = make(map[string]int)

		groupIndex[g.Strategy+"\x00"+g.Category] = len(stats.Groups)
		stats.Groups = append(stats.Groups, g)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("failed to iterate statistics rows", err)
	}

	severityQuery := `
		SELECT
			e.mitigation_strategy,
			COALESCE(p.category, ''),
			COALESCE(a.severity, ''),
			COUNT(*)
		FROM experiments e
		JOIN prompts p ON e.experiment_id = p.experiment_id
		JOIN responses r ON p.prompt_id = r.prompt_id
		JOIN annotations a ON a.annotation_id = (
			SELECT MAX(annotation_id) FROM annotations WHERE response_id = r.response_id
		)
		WHERE a.is_hallucination = 1
		GROUP BY e.mitigation_strategy, p.category, a.severity
	`

	severityRows, err := c.db.Query(severityQuery)
	if err != nil {
		return nil, storageErr("failed to get severity breakdown", err)
	}
	defer severityRows.Close()

	for severityRows.Next() {
		var strategy, category, severity string
		var count int

		err := severityRows.Scan(&strategy, &category, &severity, &count)
		if err != nil {
			return nil, storageErr("failed to scan severity row", err)
		}

		if idx, ok := groupIndex[strategy+"\x00"+category]; ok {
			stats.Groups[idx].SeverityCounts[severity] = count
		}
	}
	if err := severityRows.Err(); err != nil {
		return nil, storageErr("failed to iterate severity rows", err)
	}

	return stats, nil
}

// ExportCSV writes one denormalized row per response for the
// experiment.
func (c *Client) ExportCSV(experimentID int64, w io.Writer) error {
	results, err := c.GetExperimentResults(experimentID)
	if err != nil {
		return err
	}

	writer := csv.NewWriter(w)

	header := []string{
		"experiment_id", "experiment_name", "mitigation_strategy",
		"prompt_id", "prompt_text", "category",
		"response_id", "response_text", "latency_ms", "total_tokens",
		"annotated", "is_hallucination", "hallucination_type", "severity",
		"created_at",
	}
	if err := writer.Write(header); err != nil {
		return storageErr("failed to write csv header", err)
	}

	for _, r := range results {
		row := []string{
			strconv.FormatInt(r.ExperimentID, 10),
			r.ExperimentName,
			r.Strategy,
			strconv.FormatInt(r.PromptID, 10),
			r.PromptText,
			r.Category,
			strconv.FormatInt(r.ResponseID, 10),
			r.ResponseText,
			strconv.FormatInt(r.LatencyMS, 10),
			strconv.Itoa(r.TotalTokens),
			strconv.FormatBool(r.Annotated),
			nullableBool(r.IsHallucination),
			nullableString(r.HallucinationType),
			nullableString(r.Severity),
			r.CreatedAt.UTC().Format(time.RFC3339),
		}
		if err := writer.Write(row); err != nil {
			return storageErr("failed to write csv row", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return storageErr("failed to flush csv", err)
	}

	logger.Info("Experiment exported",
		zap.Int64("experiment_id", experimentID),
		zap.Int("rows", len(results)),
	)

	return nil
}

func storageErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrStorage, op, err)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullableBool(b *bool) string {
	if b == nil {
		return ""
	}
	return strconv.FormatBool(*b)
}

func nullableString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
