package portfolio

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// this file contains the transaction import/export format: a CSV that round
// trips through spreadsheets and is easy to hand-edit.

// csvHeader is the column set of the transaction CSV. counterparty_account_id
// is only read for INTERNAL_TRANSFER rows.
var csvHeader = []string{
	"type", "account_id", "instrument_id", "counterparty_account_id",
	"quantity", "price", "amount", "fee", "tax",
	"currency", "executed_at", "executed_tz", "note",
}

// ImportError locates one rejected CSV row. Line numbers start at 2, right
// below the header.
type ImportError struct {
	Line int
	Err  error
}

func (e ImportError) Error() string { return fmt.Sprintf("line %d: %v", e.Line, e.Err) }

// ImportReport summarizes a CSV import.
type ImportReport struct {
	Total   int
	Success int
	Errors  []ImportError
}

// ImportTransactions reads transaction rows from 'r' and appends them to the
// ledger. INTERNAL_TRANSFER rows expand into their two legs. With atomic
// set, any rejected row discards the whole import; otherwise good rows land
// and bad ones are reported per line.
func ImportTransactions(l *Ledger, r io.Reader, atomic bool) (ImportReport, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return ImportReport{}, fmt.Errorf("cannot read CSV header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.TrimSpace(strings.ToLower(name))] = i
	}
	if _, ok := col["type"]; !ok {
		return ImportReport{}, fmt.Errorf("CSV header lacks a type column")
	}

	field := func(record []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	// With atomic set, rows are staged on a scratch copy first so a late
	// error cannot leave a half import behind.
	target := l
	if atomic {
		target = LoadLedger(l.accounts, l.instruments, l.txs)
	}

	var report ImportReport
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			report.Total++
			report.Errors = append(report.Errors, ImportError{Line: line, Err: err})
			continue
		}
		report.Total++

		tx, counterparty, err := parseCSVRow(field, record)
		if err != nil {
			report.Errors = append(report.Errors, ImportError{Line: line, Err: err})
			continue
		}
		if tx.Type == InternalTransfer {
			_, err = target.Transfer(tx.AccountID, counterparty, tx.Amount, tx.Currency, tx.ExecutedAt, tx.Note)
		} else {
			_, err = target.Append(tx)
		}
		if err != nil {
			report.Errors = append(report.Errors, ImportError{Line: line, Err: err})
			continue
		}
		report.Success++
	}

	if atomic {
		if len(report.Errors) > 0 {
			report.Success = 0
			return report, nil
		}
		*l = *target
	}
	return report, nil
}

func parseCSVRow(field func([]string, string) string, record []string) (Transaction, int64, error) {
	txType, err := ParseTxType(strings.ToUpper(field(record, "type")))
	if err != nil {
		return Transaction{}, 0, err
	}
	accountID, err := strconv.ParseInt(field(record, "account_id"), 10, 64)
	if err != nil {
		return Transaction{}, 0, fmt.Errorf("bad account_id: %w", err)
	}

	var instrumentID int64
	if s := field(record, "instrument_id"); s != "" {
		if instrumentID, err = strconv.ParseInt(s, 10, 64); err != nil {
			return Transaction{}, 0, fmt.Errorf("bad instrument_id: %w", err)
		}
	}
	var counterparty int64
	if s := field(record, "counterparty_account_id"); s != "" {
		if counterparty, err = strconv.ParseInt(s, 10, 64); err != nil {
			return Transaction{}, 0, fmt.Errorf("bad counterparty_account_id: %w", err)
		}
	}

	parseDec := func(name string) (decimal.Decimal, error) {
		s := field(record, name)
		if s == "" {
			return decimal.Zero, nil
		}
		d, err := decimal.NewFromString(s)
		if err != nil {
			return decimal.Zero, fmt.Errorf("bad %s: %w", name, err)
		}
		return d, nil
	}
	quantity, err := parseDec("quantity")
	if err != nil {
		return Transaction{}, 0, err
	}
	price, err := parseDec("price")
	if err != nil {
		return Transaction{}, 0, err
	}
	amount, err := parseDec("amount")
	if err != nil {
		return Transaction{}, 0, err
	}
	fee, err := parseDec("fee")
	if err != nil {
		return Transaction{}, 0, err
	}
	tax, err := parseDec("tax")
	if err != nil {
		return Transaction{}, 0, err
	}

	executedAt, err := time.Parse(time.RFC3339, field(record, "executed_at"))
	if err != nil {
		return Transaction{}, 0, fmt.Errorf("bad executed_at: %w", err)
	}

	return Transaction{
		Type:         txType,
		AccountID:    accountID,
		InstrumentID: instrumentID,
		Quantity:     quantity,
		Price:        price,
		Amount:       amount,
		Fee:          fee,
		Tax:          tax,
		Currency:     strings.ToUpper(field(record, "currency")),
		ExecutedAt:   executedAt.UTC(),
		ExecutedTZ:   field(record, "executed_tz"),
		Note:         field(record, "note"),
	}, counterparty, nil
}

// ExportTransactions writes the ledger's history to 'w' in the import
// format, chronological order. A transfer pair collapses back into the one
// INTERNAL_TRANSFER row it was created from, so re-importing keeps the legs
// bound as a pair.
func ExportTransactions(w io.Writer, l *Ledger) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	txs := l.Transactions()
	inLeg := make(map[string]Transaction)
	for _, tx := range txs {
		if tx.TransferGroup != "" && tx.Type == CashIn {
			inLeg[tx.TransferGroup] = tx
		}
	}
	for _, tx := range txs {
		if tx.TransferGroup != "" {
			in, ok := inLeg[tx.TransferGroup]
			if tx.Type == CashIn && ok {
				// Emitted with its CASH_OUT leg.
				continue
			}
			if tx.Type == CashOut && ok {
				record := []string{
					string(InternalTransfer),
					strconv.FormatInt(tx.AccountID, 10),
					"",
					strconv.FormatInt(in.AccountID, 10),
					tx.Quantity.String(),
					tx.Price.String(),
					tx.Amount.String(),
					tx.Fee.String(),
					tx.Tax.String(),
					tx.Currency,
					tx.ExecutedAt.UTC().Format(time.RFC3339),
					tx.ExecutedTZ,
					tx.Note,
				}
				if err := cw.Write(record); err != nil {
					return err
				}
				continue
			}
			// An orphan leg falls through as its raw row.
		}
		record := []string{
			string(tx.Type),
			strconv.FormatInt(tx.AccountID, 10),
			"",
			"",
			tx.Quantity.String(),
			tx.Price.String(),
			tx.Amount.String(),
			tx.Fee.String(),
			tx.Tax.String(),
			tx.Currency,
			tx.ExecutedAt.UTC().Format(time.RFC3339),
			tx.ExecutedTZ,
			tx.Note,
		}
		if tx.InstrumentID != 0 {
			record[2] = strconv.FormatInt(tx.InstrumentID, 10)
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
