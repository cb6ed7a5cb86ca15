package hierarchy

import (
	"context"
	"net/http"
	"testing"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/laurel/pkg/models"
)

func testLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

type fakeOrgUnits struct {
	candidates map[string][]models.ManagerCandidate
	err        error
	queried    []string
}

func (f *fakeOrgUnits) ManagerCandidates(ctx context.Context, unitCode string) ([]models.ManagerCandidate, error) {
	f.queried = append(f.queried, unitCode)
	return f.candidates[unitCode], f.err
}

func strPtr(s string) *string { return &s }

func TestResolve_NoHierarchyPath(t *testing.T) {
	r := NewResolver(&fakeOrgUnits{}, testLogger())

	manager, err := r.Resolve(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, manager)

	manager, err = r.Resolve(context.Background(), strPtr(""))
	require.NoError(t, err)
	assert.Nil(t, manager)
}

func TestResolve_PathWithoutParentUnit(t *testing.T) {
	orgUnits := &fakeOrgUnits{}
	r := NewResolver(orgUnits, testLogger())

	manager, err := r.Resolve(context.Background(), strPtr("COMPANY"))
	require.NoError(t, err)
	assert.Nil(t, manager)
	assert.Empty(t, orgUnits.queried, "single-segment paths have no parent unit to look up")
}

func TestResolve_QueriesParentUnit(t *testing.T) {
	managerID := uuid.New()
	orgUnits := &fakeOrgUnits{
		candidates: map[string][]models.ManagerCandidate{
			"ENG": {{UserID: managerID, Registration: "MGR", HierarchyPath: "COMPANY > ENG"}},
		},
	}
	r := NewResolver(orgUnits, testLogger())

	manager, err := r.Resolve(context.Background(), strPtr("COMPANY > ENG > PLATFORM"))
	require.NoError(t, err)
	require.NotNil(t, manager)
	assert.Equal(t, managerID, manager.UserID)
	assert.Equal(t, []string{"ENG"}, orgUnits.queried)
}

func TestResolve_DeepestPathWins(t *testing.T) {
	shallow := models.ManagerCandidate{UserID: uuid.New(), Registration: "VP", HierarchyPath: "COMPANY"}
	deep := models.ManagerCandidate{UserID: uuid.New(), Registration: "LEAD", HierarchyPath: "COMPANY > ENG > PLATFORM"}

	orgUnits := &fakeOrgUnits{
		candidates: map[string][]models.ManagerCandidate{
			"PLATFORM": {shallow, deep},
		},
	}
	r := NewResolver(orgUnits, testLogger())

	manager, err := r.Resolve(context.Background(), strPtr("COMPANY > ENG > PLATFORM > BACKEND"))
	require.NoError(t, err)
	require.NotNil(t, manager)
	assert.Equal(t, deep.UserID, manager.UserID)
}

func TestResolve_NoCandidates(t *testing.T) {
	r := NewResolver(&fakeOrgUnits{}, testLogger())

	manager, err := r.Resolve(context.Background(), strPtr("COMPANY > ENG"))
	require.NoError(t, err)
	assert.Nil(t, manager)
}

func TestResolve_StoreErrorSurfaces(t *testing.T) {
	orgUnits := &fakeOrgUnits{err: httperror.NewHTTPError(http.StatusInternalServerError, "store down")}
	r := NewResolver(orgUnits, testLogger())

	_, err := r.Resolve(context.Background(), strPtr("COMPANY > ENG"))
	require.Error(t, err)
}
