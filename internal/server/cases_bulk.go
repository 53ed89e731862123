package server

import (
	"encoding/csv"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	casedomain "github.com/recovahq/recova/internal/case/domain"
)

const bulkMaxRows = 10000

// csvColumns is the expected header of a bulk upload. Columns may appear in
// any order; unknown columns are ignored.
var csvColumns = []string{
	"account_id", "debtor_name", "debtor_email", "debtor_phone",
	"amount", "currency", "debt_type", "days_delinquent",
}

// BulkUploadCases ingests a multipart CSV. Rows fail independently: a bad
// amount on row 7 never blocks row 8.
func (s *Server) BulkUploadCases(c *gin.Context) {
	file, _, err := c.Request.FormFile("file")
	if err != nil {
		AbortWithError(c, newValidationError("file", "missing_file", "multipart field 'file' is required"))
		return
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		AbortWithError(c, newValidationError("file", "invalid_csv", "unreadable CSV header"))
		return
	}
	columns := indexColumns(header)
	if _, ok := columns["debtor_name"]; !ok {
		AbortWithError(c, newValidationError("file", "invalid_header", "debtor_name column is required"))
		return
	}

	var rows []casedomain.BulkRow
	var failures []casedomain.BulkRowFailure
	rowNum := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		rowNum++
		if err != nil {
			failures = append(failures, casedomain.BulkRowFailure{
				Row:     rowNum,
				Message: "malformed CSV row",
			})
			continue
		}
		if rowNum-1 > bulkMaxRows {
			AbortWithError(c, newValidationError("file", "too_many_rows", "bulk upload exceeds row limit"))
			return
		}

		req, err := parseBulkRow(columns, record)
		if err != nil {
			failures = append(failures, casedomain.BulkRowFailure{
				Row:     rowNum,
				Message: err.Error(),
				Raw:     record,
			})
			continue
		}
		rows = append(rows, casedomain.BulkRow{Row: rowNum, Request: req, Raw: record})
	}

	result := s.caseSvc.BulkCreate(c.Request.Context(), rows)
	result.Failures = append(result.Failures, failures...)
	result.Failed += len(failures)
	result.TotalRows += len(failures)

	c.JSON(http.StatusOK, gin.H{"data": result})
}

func indexColumns(header []string) map[string]int {
	index := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.ToLower(strings.TrimSpace(name))
		for _, known := range csvColumns {
			if name == known {
				index[name] = i
			}
		}
	}
	return index
}

func parseBulkRow(columns map[string]int, record []string) (casedomain.CreateCaseRequest, error) {
	field := func(name string) string {
		i, ok := columns[name]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	req := casedomain.CreateCaseRequest{
		AccountID:   field("account_id"),
		DebtorName:  field("debtor_name"),
		DebtorEmail: field("debtor_email"),
		DebtorPhone: field("debtor_phone"),
		Currency:    field("currency"),
		DebtType:    strings.ToLower(field("debt_type")),
	}

	rawAmount := field("amount")
	if rawAmount == "" {
		return req, casedomain.ErrInvalidAmount
	}
	amount, err := strconv.ParseFloat(rawAmount, 64)
	if err != nil {
		return req, casedomain.ErrInvalidAmount
	}
	req.Amount = amount

	if raw := field("days_delinquent"); raw != "" {
		days, err := strconv.Atoi(raw)
		if err != nil {
			return req, casedomain.ErrInvalidDelinquent
		}
		req.DaysDelinquent = days
	}

	return req, nil
}
