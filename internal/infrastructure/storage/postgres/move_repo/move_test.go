package move_repo

import (
	"strings"
	"testing"

	"stockledger/internal/core/id"
	"stockledger/internal/domain/movement"
	"stockledger/internal/infrastructure/storage/postgres"
)

func TestBuildListQuery(t *testing.T) {
	repo := NewMoveRepo(&postgres.TxManager{})
	confirmed := movement.StateConfirmed
	productID := id.New()

	tests := []struct {
		name     string
		filter   movement.ListFilter
		wantSQL  []string
		wantArgs int
	}{
		{
			name:     "no filter",
			filter:   movement.ListFilter{},
			wantSQL:  []string{"FROM stock_moves", "ORDER BY created_at DESC"},
			wantArgs: 0,
		},
		{
			name:     "by state",
			filter:   movement.ListFilter{State: &confirmed},
			wantSQL:  []string{"state = $1"},
			wantArgs: 1,
		},
		{
			name:     "by state and product with paging",
			filter:   movement.ListFilter{State: &confirmed, ProductID: &productID, Limit: 20, Offset: 40},
			wantSQL:  []string{"state = $1", "product_id = $2", "LIMIT 20", "OFFSET 40"},
			wantArgs: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, args, err := repo.buildListQuery(tt.filter)
			if err != nil {
				t.Fatalf("buildListQuery: %v", err)
			}

			for _, fragment := range tt.wantSQL {
				if !strings.Contains(sql, fragment) {
					t.Errorf("SQL missing %q:\n%s", fragment, sql)
				}
			}
			if len(args) != tt.wantArgs {
				t.Errorf("args = %d, want %d", len(args), tt.wantArgs)
			}
		})
	}
}
