package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/mmynk/settleup/internal/models"
	"github.com/mmynk/settleup/internal/service"
	"github.com/mmynk/settleup/internal/storage"
)

// ledgerFile is the on-disk form of one group's ledger read by the balances
// command. Files ending in .json are decoded as JSON, anything else as YAML.
type ledgerFile struct {
	GroupID string `yaml:"group_id" json:"group_id"`

	// Members restricts who may appear in the ledger. When empty every
	// payer, split member and settlement party counts as a member.
	Members     []string            `yaml:"members,omitempty" json:"members,omitempty"`
	Expenses    []models.Expense    `yaml:"expenses" json:"expenses"`
	Settlements []models.Settlement `yaml:"settlements,omitempty" json:"settlements,omitempty"`
}

func loadLedgerFile(path string) (*ledgerFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading ledger: %w", err)
	}

	var lf ledgerFile
	if strings.EqualFold(filepath.Ext(path), ".json") {
		err = json.Unmarshal(data, &lf)
	} else {
		err = yaml.Unmarshal(data, &lf)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing ledger %s: %w", path, err)
	}

	if lf.GroupID == "" {
		lf.GroupID = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	for i := range lf.Expenses {
		if lf.Expenses[i].GroupID == "" {
			lf.Expenses[i].GroupID = lf.GroupID
		}
	}
	for i := range lf.Settlements {
		if lf.Settlements[i].GroupID == "" {
			lf.Settlements[i].GroupID = lf.GroupID
		}
		if lf.Settlements[i].Status == "" {
			lf.Settlements[i].Status = models.SettlementCompleted
		}
	}
	return &lf, nil
}

var _ service.ExpenseSource = (*ledgerFile)(nil)

func (lf *ledgerFile) GetGroup(_ context.Context, groupID string) (*models.Group, error) {
	if groupID != lf.GroupID {
		return nil, fmt.Errorf("group %s: %w", groupID, storage.ErrNotFound)
	}
	members := lf.Members
	if len(members) == 0 {
		members = lf.participants()
	}
	return &models.Group{ID: lf.GroupID, Name: lf.GroupID, Members: members}, nil
}

func (lf *ledgerFile) ListExpensesByGroup(_ context.Context, _ string) ([]models.Expense, error) {
	return lf.Expenses, nil
}

func (lf *ledgerFile) ListSettlementsByGroup(_ context.Context, _ string) ([]models.Settlement, error) {
	return lf.Settlements, nil
}

func (lf *ledgerFile) participants() []string {
	set := make(map[string]bool)
	for _, e := range lf.Expenses {
		set[e.PayerID] = true
		for _, s := range e.Splits {
			set[s.MemberID] = true
		}
	}
	for _, s := range lf.Settlements {
		set[s.FromMemberID] = true
		set[s.ToMemberID] = true
	}
	delete(set, "")

	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
