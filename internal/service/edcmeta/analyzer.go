package edcmeta

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/duckdb/duckdb-go/v2"
)

// columnVariants 不同 EDC 系统导出的列名差异映射
var columnVariants = map[string][]string{
	"view":  {"viewname", "view", "form_name", "formname"},
	"field": {"fieldname", "field", "name", "varname"},
	"label": {"label", "description", "varlabel"},
	"type":  {"type", "datatype", "vartype"},
}

// Analyzer 基于 DuckDB 内存库的 EDC 元数据分析器
type Analyzer struct {
	db *sql.DB
}

// NewAnalyzer 创建分析器，使用内存 DuckDB 连接
func NewAnalyzer() (*Analyzer, error) {
	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, fmt.Errorf("failed to open duckdb: %w", err)
	}
	return &Analyzer{db: db}, nil
}

// Close 关闭底层连接
func (a *Analyzer) Close() error {
	if a.db != nil {
		return a.db.Close()
	}
	return nil
}

// LoadCSV 将 EDC 元数据 CSV 加载为内存目录
// 自动推断列类型并归一化不同 EDC 系统的列名
// 临时表是连接级别的，整个加载过程固定在同一个连接上执行，
// 并发加载互不可见
func (a *Analyzer) LoadCSV(ctx context.Context, path string) (*Catalog, error) {
	conn, err := a.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire duckdb connection: %w", err)
	}
	defer conn.Close()

	createSQL := fmt.Sprintf(
		"CREATE OR REPLACE TEMP TABLE edc_metadata AS SELECT * FROM read_csv_auto('%s')",
		strings.ReplaceAll(path, "'", "''"))
	if _, err := conn.ExecContext(ctx, createSQL); err != nil {
		return nil, fmt.Errorf("failed to load edc metadata csv: %w", err)
	}
	defer conn.ExecContext(ctx, "DROP TABLE IF EXISTS edc_metadata")

	columns, err := tableColumns(ctx, conn)
	if err != nil {
		return nil, err
	}

	viewCol, ok := resolveColumn(columns, "view")
	if !ok {
		return nil, fmt.Errorf("edc metadata has no view column, found: %s", strings.Join(columns, ", "))
	}
	fieldCol, ok := resolveColumn(columns, "field")
	if !ok {
		return nil, fmt.Errorf("edc metadata has no field column, found: %s", strings.Join(columns, ", "))
	}
	labelCol, hasLabel := resolveColumn(columns, "label")
	typeCol, hasType := resolveColumn(columns, "type")

	selectCols := []string{quoteIdent(viewCol), quoteIdent(fieldCol)}
	if hasLabel {
		selectCols = append(selectCols, quoteIdent(labelCol))
	} else {
		selectCols = append(selectCols, "NULL")
	}
	if hasType {
		selectCols = append(selectCols, quoteIdent(typeCol))
	} else {
		selectCols = append(selectCols, "NULL")
	}

	querySQL := fmt.Sprintf("SELECT %s FROM edc_metadata", strings.Join(selectCols, ", "))
	rows, err := conn.QueryContext(ctx, querySQL)
	if err != nil {
		return nil, fmt.Errorf("failed to query edc metadata: %w", err)
	}
	defer rows.Close()

	vars := make(map[string][]Variable)
	for rows.Next() {
		var view, field, label, vtype sql.NullString
		if err := rows.Scan(&view, &field, &label, &vtype); err != nil {
			return nil, fmt.Errorf("failed to scan edc metadata row: %w", err)
		}
		if !view.Valid || view.String == "" || !field.Valid || field.String == "" {
			continue
		}
		vars[view.String] = append(vars[view.String], Variable{
			Field: field.String,
			Label: label.String,
			Type:  vtype.String,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read edc metadata rows: %w", err)
	}

	if len(vars) == 0 {
		return nil, fmt.Errorf("edc metadata contains no usable rows")
	}

	return NewCatalog(vars), nil
}

// tableColumns 在同一连接上读取已加载表的列名
func tableColumns(ctx context.Context, conn *sql.Conn) ([]string, error) {
	rows, err := conn.QueryContext(ctx,
		"SELECT column_name FROM information_schema.columns WHERE table_name = 'edc_metadata'")
	if err != nil {
		return nil, fmt.Errorf("failed to describe edc metadata: %w", err)
	}
	defer rows.Close()

	var columns []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan column name: %w", err)
		}
		columns = append(columns, name)
	}
	return columns, rows.Err()
}

// resolveColumn 在实际列名中查找目标列的已知变体
func resolveColumn(columns []string, target string) (string, bool) {
	for _, variant := range columnVariants[target] {
		for _, col := range columns {
			if strings.EqualFold(col, variant) {
				return col, true
			}
		}
	}
	return "", false
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
