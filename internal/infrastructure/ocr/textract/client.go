// Package textract adapts AWS Textract to the TextRecognizer port.
// Documents are referenced by their S3 key in the configured bucket.
package textract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/textract"
	"github.com/aws/aws-sdk-go-v2/service/textract/types"

	"github.com/ringside-labs/docintel/internal/core/domain"
	"github.com/ringside-labs/docintel/internal/infrastructure/resilience"
)

type Client struct {
	tx       *textract.Client
	bucket   string
	executor *resilience.Executor
	log      *slog.Logger
}

func New(ctx context.Context, region, bucket string, executor *resilience.Executor, log *slog.Logger) (*Client, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	if log == nil {
		log = slog.Default()
	}
	return &Client{
		tx:       textract.NewFromConfig(cfg),
		bucket:   bucket,
		executor: executor,
		log:      log,
	}, nil
}

func (c *Client) ExtractText(ctx context.Context, storageKey string) (domain.OCRResult, error) {
	var out *textract.DetectDocumentTextOutput
	err := c.execute(ctx, "textract.detect_document_text", func(callCtx context.Context) error {
		var callErr error
		out, callErr = c.tx.DetectDocumentText(callCtx, &textract.DetectDocumentTextInput{
			Document: c.document(storageKey),
		})
		return callErr
	})
	if err != nil {
		return domain.OCRResult{}, domain.WrapError(domain.ErrOCR, "extract text from "+storageKey, err)
	}

	result := domain.OCRResult{}
	var lines []string
	var confSum float64
	var confCount int
	for _, block := range out.Blocks {
		mapped := mapBlock(block)
		result.Blocks = append(result.Blocks, mapped)
		if block.BlockType == types.BlockTypeLine {
			lines = append(lines, mapped.Text)
			confSum += mapped.Confidence
			confCount++
		}
	}
	result.Text = strings.Join(lines, "\n")
	if confCount > 0 {
		result.Confidence = confSum / float64(confCount)
	}

	c.log.Info("textract text extraction done",
		"storage_key", storageKey,
		"lines", confCount,
		"confidence", result.Confidence,
	)
	return result, nil
}

func (c *Client) AnalyzeDocument(ctx context.Context, storageKey string) (domain.DocumentAnalysis, error) {
	var out *textract.AnalyzeDocumentOutput
	err := c.execute(ctx, "textract.analyze_document", func(callCtx context.Context) error {
		var callErr error
		out, callErr = c.tx.AnalyzeDocument(callCtx, &textract.AnalyzeDocumentInput{
			Document:     c.document(storageKey),
			FeatureTypes: []types.FeatureType{types.FeatureTypeForms, types.FeatureTypeTables},
		})
		return callErr
	})
	if err != nil {
		return domain.DocumentAnalysis{}, domain.WrapError(domain.ErrOCR, "analyze document "+storageKey, err)
	}

	byID := make(map[string]types.Block, len(out.Blocks))
	var lines []string
	for _, block := range out.Blocks {
		if block.Id != nil {
			byID[*block.Id] = block
		}
		if block.BlockType == types.BlockTypeLine && block.Text != nil {
			lines = append(lines, *block.Text)
		}
	}

	analysis := domain.DocumentAnalysis{
		Text:   strings.Join(lines, "\n"),
		Forms:  collectForms(out.Blocks, byID),
		Tables: collectTables(out.Blocks, byID),
	}
	c.log.Info("textract document analysis done",
		"storage_key", storageKey,
		"forms", len(analysis.Forms),
		"tables", len(analysis.Tables),
	)
	return analysis, nil
}

func (c *Client) document(storageKey string) *types.Document {
	return &types.Document{
		S3Object: &types.S3Object{
			Bucket: aws.String(c.bucket),
			Name:   aws.String(storageKey),
		},
	}
}

func (c *Client) execute(ctx context.Context, operation string, fn func(context.Context) error) error {
	if c.executor == nil {
		return fn(ctx)
	}
	return c.executor.Execute(ctx, operation, fn, classifyTextractError)
}

func classifyTextractError(err error) resilience.ErrorClassification {
	if err == nil {
		return resilience.ErrorClassification{}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return resilience.ErrorClassification{Retryable: false, RecordFailure: false}
	}
	var throttle *types.ProvisionedThroughputExceededException
	var internal *types.InternalServerError
	if errors.As(err, &throttle) || errors.As(err, &internal) || resilience.IsCircuitOpen(err) {
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	}
	var invalid *types.InvalidS3ObjectException
	var unsupported *types.UnsupportedDocumentException
	if errors.As(err, &invalid) || errors.As(err, &unsupported) {
		return resilience.ErrorClassification{Retryable: false, RecordFailure: false}
	}
	return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
}

func mapBlock(block types.Block) domain.OCRBlock {
	mapped := domain.OCRBlock{Type: string(block.BlockType)}
	if block.Text != nil {
		mapped.Text = *block.Text
	}
	if block.Confidence != nil {
		// Textract reports percentages; the domain speaks [0,1].
		mapped.Confidence = float64(*block.Confidence) / 100.0
	}
	if block.Page != nil {
		mapped.Page = int(*block.Page)
	}
	if block.Geometry != nil && block.Geometry.BoundingBox != nil {
		box := block.Geometry.BoundingBox
		mapped.Location = &domain.SourceLocation{
			Page:   mapped.Page,
			Left:   float64(box.Left),
			Top:    float64(box.Top),
			Width:  float64(box.Width),
			Height: float64(box.Height),
		}
	}
	return mapped
}

func collectForms(blocks []types.Block, byID map[string]types.Block) []domain.FormField {
	var forms []domain.FormField
	for _, block := range blocks {
		if block.BlockType != types.BlockTypeKeyValueSet || !hasEntityType(block, types.EntityTypeKey) {
			continue
		}
		key := childText(block, byID)
		var value string
		for _, rel := range block.Relationships {
			if rel.Type != types.RelationshipTypeValue {
				continue
			}
			for _, id := range rel.Ids {
				if valueBlock, ok := byID[id]; ok {
					value = childText(valueBlock, byID)
				}
			}
		}
		if key != "" {
			forms = append(forms, domain.FormField{Key: key, Value: value})
		}
	}
	return forms
}

func collectTables(blocks []types.Block, byID map[string]types.Block) []domain.Table {
	var tables []domain.Table
	for _, block := range blocks {
		if block.BlockType != types.BlockTypeTable {
			continue
		}
		grid := make(map[int]map[int]string)
		maxRow, maxCol := 0, 0
		for _, rel := range block.Relationships {
			if rel.Type != types.RelationshipTypeChild {
				continue
			}
			for _, id := range rel.Ids {
				cell, ok := byID[id]
				if !ok || cell.BlockType != types.BlockTypeCell || cell.RowIndex == nil || cell.ColumnIndex == nil {
					continue
				}
				row, col := int(*cell.RowIndex), int(*cell.ColumnIndex)
				if grid[row] == nil {
					grid[row] = make(map[int]string)
				}
				grid[row][col] = childText(cell, byID)
				if row > maxRow {
					maxRow = row
				}
				if col > maxCol {
					maxCol = col
				}
			}
		}
		if maxRow == 0 {
			continue
		}
		table := domain.Table{Rows: make([][]string, maxRow)}
		for row := 1; row <= maxRow; row++ {
			cells := make([]string, maxCol)
			for col := 1; col <= maxCol; col++ {
				cells[col-1] = grid[row][col]
			}
			table.Rows[row-1] = cells
		}
		tables = append(tables, table)
	}
	return tables
}

func childText(block types.Block, byID map[string]types.Block) string {
	var words []string
	for _, rel := range block.Relationships {
		if rel.Type != types.RelationshipTypeChild {
			continue
		}
		for _, id := range rel.Ids {
			child, ok := byID[id]
			if !ok || child.Text == nil {
				continue
			}
			if child.BlockType == types.BlockTypeWord {
				words = append(words, *child.Text)
			}
		}
	}
	return strings.Join(words, " ")
}

func hasEntityType(block types.Block, et types.EntityType) bool {
	for _, t := range block.EntityTypes {
		if t == et {
			return true
		}
	}
	return false
}
