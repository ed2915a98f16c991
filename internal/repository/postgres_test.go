package repository

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/senyabanana/procurement-service/internal/models"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"golang.org/x/sync/errgroup"
)

const ownerId = "mgr-1"

type PostgresStoreSuite struct {
	suite.Suite
	container *tcpostgres.PostgresContainer
	pool      *pgxpool.Pool
	processes *PostgresProcessRepository
	contracts *PostgresContractRepository
	audit     *PostgresAuditRepository
	actors    *PostgresActorRegistry
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping postgres tests in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("procurement"),
		tcpostgres.WithUsername("procurement"),
		tcpostgres.WithPassword("procurement"),
		tcpostgres.BasicWaitStrategies(),
	)
	s.Require().NoError(err, "failed to start postgres container")
	s.container = container

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	s.Require().NoError(err)

	migration, err := migrate.New("file://../../migrations", dsn)
	s.Require().NoError(err)
	err = migration.Up()
	s.Require().True(err == nil || errors.Is(err, migrate.ErrNoChange), "migrate up: %v", err)

	s.pool, err = pgxpool.New(ctx, dsn)
	s.Require().NoError(err)
	s.Require().NoError(s.pool.Ping(ctx))

	_, err = s.pool.Exec(ctx, `INSERT INTO actor (id, name, role) VALUES ($1, $2, $3)`, ownerId, "Ana Souza", models.Manager)
	s.Require().NoError(err)

	s.processes = NewPostgresProcessRepository(s.pool)
	s.contracts = NewPostgresContractRepository(s.pool)
	s.audit = NewPostgresAuditRepository(s.pool)
	s.actors = NewPostgresActorRegistry(s.pool)
}

func (s *PostgresStoreSuite) TearDownSuite() {
	if s.pool != nil {
		s.pool.Close()
	}
	if s.container != nil {
		_ = s.container.Terminate(context.Background())
	}
}

func (s *PostgresStoreSuite) SetupTest() {
	_, err := s.pool.Exec(context.Background(), `
		TRUNCATE audit_event, payment, delivery_item, delivery, commitment, contract,
		         bid, process_document, process_item, process`)
	s.Require().NoError(err)
}

func (s *PostgresStoreSuite) createProcess(number int64) string {
	id := fmt.Sprintf("PA-2026-%04d", number)
	createdAt := time.Date(2026, time.January, 1, 9, 0, 0, 0, time.UTC)
	err := s.processes.CreateProcess(context.Background(), models.Process{
		ID:             id,
		Number:         number,
		Title:          "Office equipment",
		Description:    "Laptops and monitors",
		OwnerID:        ownerId,
		Modality:       models.ElectronicAuction,
		OpenDate:       createdAt,
		EstimatedValue: decimal.RequireFromString("2500000.50"),
		Stage:          models.TorDrafting,
		CreatedAt:      createdAt,
	}, models.AuditEvent{EntityID: id, Timestamp: createdAt, Category: models.ProcessOpened, ActorID: ownerId})
	s.Require().NoError(err)
	return id
}

// awardedProcess добавляет две позиции и предложение и выбирает его победителем.
func (s *PostgresStoreSuite) awardedProcess(number int64) *models.Process {
	id := s.createProcess(number)
	submitted := time.Date(2026, time.February, 1, 10, 0, 0, 0, time.UTC)

	p, err := s.processes.UpdateProcess(context.Background(), id, func(p *models.Process) (ProcessChange, error) {
		p.Items = append(p.Items,
			models.Item{ID: id + "-laptop", Name: "Laptop", UnitPrice: decimal.NewFromInt(5000), Quantity: 200, Unit: models.UnitPiece},
			models.Item{ID: id + "-monitor", Name: "Monitor", UnitPrice: decimal.RequireFromString("1500.25"), Quantity: 600, Unit: models.UnitPiece})
		p.Bids = append(p.Bids, models.Bid{
			ID:          id + "-bid",
			Supplier:    models.Supplier{ID: "sup-1", Name: "Acme Ltda"},
			SubmittedAt: submitted,
			Value:       decimal.NewFromInt(1150000),
		})
		p.SelectedBidID = id + "-bid"
		return ProcessChange{Event: models.AuditEvent{EntityID: p.ID, Timestamp: submitted, Category: models.BidSelected}}, nil
	})
	s.Require().NoError(err)
	return p
}

func (s *PostgresStoreSuite) bindContract(processId, contractId string, value decimal.Decimal) error {
	start := time.Date(2026, time.April, 1, 0, 0, 0, 0, time.UTC)
	_, err := s.processes.UpdateProcess(context.Background(), processId, func(p *models.Process) (ProcessChange, error) {
		p.Stage = models.Contracting
		p.ContractID = contractId
		return ProcessChange{
			Event: models.AuditEvent{EntityID: p.ID, Timestamp: start, Category: models.ContractCreated},
			Contract: &models.Contract{
				ID:          contractId,
				ProcessID:   p.ID,
				Supplier:    models.Supplier{ID: "sup-1", Name: "Acme Ltda"},
				StartDate:   start,
				EndDate:     start.AddDate(1, 0, 0),
				Value:       value,
				InspectorID: "insp-1",
				CreatedAt:   start,
			},
		}, nil
	})
	return err
}

func (s *PostgresStoreSuite) TestActorRegistry() {
	ctx := context.Background()

	actor, err := s.actors.GetActor(ctx, ownerId)
	s.Require().NoError(err)
	s.Equal(models.Manager, actor.Role)
	s.Equal("Ana Souza", actor.Name)

	_, err = s.actors.GetActor(ctx, "ghost")
	s.ErrorIs(err, ErrNotFound)
}

func (s *PostgresStoreSuite) TestNextProcessSequence() {
	ctx := context.Background()

	first, err := s.processes.NextProcessSequence(ctx)
	s.Require().NoError(err)
	second, err := s.processes.NextProcessSequence(ctx)
	s.Require().NoError(err)
	s.Equal(first+1, second)
}

func (s *PostgresStoreSuite) TestProcessRoundTrip() {
	ctx := context.Background()
	p := s.awardedProcess(1)

	_, err := s.processes.UpdateProcess(ctx, p.ID, func(p *models.Process) (ProcessChange, error) {
		p.Documents = append(p.Documents, models.Document{
			ID: "doc-1", Title: "Terms of reference", Content: "...", AuthorID: ownerId,
			CreatedAt: time.Date(2026, time.February, 2, 0, 0, 0, 0, time.UTC),
		})
		return ProcessChange{Event: models.AuditEvent{EntityID: p.ID, Timestamp: time.Now(), Category: models.DocumentAdded}}, nil
	})
	s.Require().NoError(err)

	loaded, err := s.processes.GetProcess(ctx, p.ID)
	s.Require().NoError(err)
	s.Equal(int64(1), loaded.Number)
	s.True(loaded.EstimatedValue.Equal(decimal.RequireFromString("2500000.50")))
	s.Require().Len(loaded.Items, 2)
	s.Equal("Laptop", loaded.Items[0].Name)
	s.Equal("Monitor", loaded.Items[1].Name)
	s.True(loaded.Items[1].UnitPrice.Equal(decimal.RequireFromString("1500.25")))
	s.Require().Len(loaded.Documents, 1)
	s.Equal("Terms of reference", loaded.Documents[0].Title)
	s.Require().Len(loaded.Bids, 1)
	s.Equal("Acme Ltda", loaded.Bids[0].Supplier.Name)
	s.Equal(p.ID+"-bid", loaded.SelectedBidID)

	_, err = s.processes.GetProcess(ctx, "PA-2026-0404")
	s.ErrorIs(err, ErrNotFound)

	err = s.processes.CreateProcess(ctx, models.Process{ID: p.ID}, models.AuditEvent{EntityID: p.ID})
	s.ErrorIs(err, ErrConflict)
}

func (s *PostgresStoreSuite) TestFailedMutationRollsBack() {
	ctx := context.Background()
	id := s.createProcess(1)
	rejected := errors.New("rejected")

	_, err := s.processes.UpdateProcess(ctx, id, func(p *models.Process) (ProcessChange, error) {
		p.Stage = models.Completed
		p.Items = append(p.Items, models.Item{ID: "item-x", Name: "X", Quantity: 1, Unit: models.UnitPiece})
		return ProcessChange{}, rejected
	})
	s.ErrorIs(err, rejected)

	loaded, err := s.processes.GetProcess(ctx, id)
	s.Require().NoError(err)
	s.Equal(models.TorDrafting, loaded.Stage)
	s.Empty(loaded.Items)

	events, err := s.audit.ListAuditEvents(ctx, id)
	s.Require().NoError(err)
	s.Len(events, 1)
}

func (s *PostgresStoreSuite) TestListProcessesByNumberWithCollections() {
	ctx := context.Background()
	s.awardedProcess(10000)
	s.createProcess(9999)
	s.createProcess(10001)

	processes, err := s.processes.ListProcesses(ctx, 10, 0, nil)
	s.Require().NoError(err)
	s.Require().Len(processes, 3)
	s.Equal("PA-2026-9999", processes[0].ID)
	s.Equal("PA-2026-10000", processes[1].ID)
	s.Equal("PA-2026-10001", processes[2].ID)
	s.Len(processes[1].Items, 2)
	s.Len(processes[1].Bids, 1)

	page, err := s.processes.ListProcesses(ctx, 1, 1, []string{string(models.TorDrafting)})
	s.Require().NoError(err)
	s.Require().Len(page, 1)
	s.Equal("PA-2026-10000", page[0].ID)
}

func (s *PostgresStoreSuite) TestContractBoundWithProcess() {
	ctx := context.Background()
	first := s.awardedProcess(1)
	second := s.awardedProcess(2)

	s.Require().NoError(s.bindContract(first.ID, "CT-2026-001", decimal.NewFromInt(1150000)))

	contract, err := s.contracts.GetContract(ctx, "CT-2026-001")
	s.Require().NoError(err)
	s.Equal(first.ID, contract.ProcessID)
	s.True(contract.Value.Equal(decimal.NewFromInt(1150000)))
	s.True(contract.EndDate.Equal(contract.StartDate.AddDate(1, 0, 0)))

	err = s.bindContract(second.ID, "CT-2026-001", decimal.NewFromInt(10))
	s.ErrorIs(err, ErrConflict)

	loaded, err := s.processes.GetProcess(ctx, second.ID)
	s.Require().NoError(err)
	s.Empty(loaded.ContractID)
	s.Equal(models.TorDrafting, loaded.Stage)

	_, err = s.contracts.GetContract(ctx, "CT-404")
	s.ErrorIs(err, ErrNotFound)
}

func (s *PostgresStoreSuite) TestContractLedgersAppend() {
	ctx := context.Background()
	p := s.awardedProcess(1)
	s.Require().NoError(s.bindContract(p.ID, "CT-2026-001", decimal.NewFromInt(1150000)))
	day := time.Date(2026, time.May, 4, 0, 0, 0, 0, time.UTC)

	_, err := s.contracts.UpdateContract(ctx, "CT-2026-001", func(c *models.Contract) (models.AuditEvent, error) {
		c.Commitments = append(c.Commitments, models.Commitment{ID: "NE-1", Date: day, Amount: decimal.NewFromInt(1150000), AuthorizerID: "auth-1"})
		c.Deliveries = append(c.Deliveries,
			models.Delivery{ID: "dl-1", Date: day, Description: "first batch", ResponsibleID: "insp-1", Items: []models.DeliveredItem{
				{ItemID: p.ID + "-laptop", Quantity: 100},
				{ItemID: p.ID + "-monitor", Quantity: 0},
			}},
			models.Delivery{ID: "dl-2", Date: day, Description: "paperwork only", ResponsibleID: "insp-1"})
		return models.AuditEvent{EntityID: c.ID, Timestamp: day, Category: models.DeliveryRecorded}, nil
	})
	s.Require().NoError(err)

	_, err = s.contracts.UpdateContract(ctx, "CT-2026-001", func(c *models.Contract) (models.AuditEvent, error) {
		c.Deliveries = append(c.Deliveries, models.Delivery{ID: "dl-3", Date: day, Description: "second batch", ResponsibleID: "insp-1",
			Items: []models.DeliveredItem{{ItemID: p.ID + "-laptop", Quantity: 50}}})
		c.Payments = append(c.Payments, models.Payment{ID: "OB-1", Date: day, Amount: decimal.RequireFromString("575000.25"), AuthorizerID: "auth-1"})
		return models.AuditEvent{EntityID: c.ID, Timestamp: day, Category: models.PaymentRecorded}, nil
	})
	s.Require().NoError(err)

	contract, err := s.contracts.GetContract(ctx, "CT-2026-001")
	s.Require().NoError(err)
	s.Require().Len(contract.Commitments, 1)
	s.True(contract.TotalCommitted().Equal(decimal.NewFromInt(1150000)))
	s.Require().Len(contract.Deliveries, 3)
	s.Equal([]string{"dl-1", "dl-2", "dl-3"}, []string{contract.Deliveries[0].ID, contract.Deliveries[1].ID, contract.Deliveries[2].ID})
	s.Equal([]models.DeliveredItem{{ItemID: p.ID + "-laptop", Quantity: 100}, {ItemID: p.ID + "-monitor", Quantity: 0}}, contract.Deliveries[0].Items)
	s.Empty(contract.Deliveries[1].Items)
	s.Equal(150, contract.DeliveredQuantity(p.ID+"-laptop"))
	s.Require().Len(contract.Payments, 1)
	s.True(contract.TotalPaid().Equal(decimal.RequireFromString("575000.25")))

	_, err = s.contracts.UpdateContract(ctx, "CT-2026-001", func(c *models.Contract) (models.AuditEvent, error) {
		c.Payments = append(c.Payments, models.Payment{ID: "OB-1", Date: day, Amount: decimal.NewFromInt(1), AuthorizerID: "auth-1"})
		return models.AuditEvent{EntityID: c.ID, Timestamp: day, Category: models.PaymentRecorded}, nil
	})
	s.ErrorIs(err, ErrConflict)

	events, err := s.audit.ListAuditEvents(ctx, "CT-2026-001")
	s.Require().NoError(err)
	s.Len(events, 2)
}

func (s *PostgresStoreSuite) TestConcurrentPaymentsAreSerialized() {
	ctx := context.Background()
	p := s.awardedProcess(1)
	s.Require().NoError(s.bindContract(p.ID, "CT-2026-001", decimal.NewFromInt(1000)))
	overCap := errors.New("over cap")

	var g errgroup.Group
	results := make([]error, 20)
	for i := range results {
		i := i
		g.Go(func() error {
			_, results[i] = s.contracts.UpdateContract(ctx, "CT-2026-001", func(c *models.Contract) (models.AuditEvent, error) {
				amount := decimal.NewFromInt(100)
				if c.TotalPaid().Add(amount).GreaterThan(c.Value) {
					return models.AuditEvent{}, overCap
				}
				c.Payments = append(c.Payments, models.Payment{ID: fmt.Sprintf("OB-%d", i), Date: time.Now(), Amount: amount, AuthorizerID: "auth-1"})
				return models.AuditEvent{EntityID: c.ID, Timestamp: time.Now(), Category: models.PaymentRecorded}, nil
			})
			return nil
		})
	}
	s.Require().NoError(g.Wait())

	succeeded := 0
	for _, err := range results {
		if err == nil {
			succeeded++
		} else {
			s.ErrorIs(err, overCap)
		}
	}
	s.Equal(10, succeeded)

	contract, err := s.contracts.GetContract(ctx, "CT-2026-001")
	s.Require().NoError(err)
	s.True(contract.TotalPaid().Equal(contract.Value))
}

func (s *PostgresStoreSuite) TestAuditTimestampNeverStepsBack() {
	ctx := context.Background()
	id := s.createProcess(1)

	base := time.Date(2026, time.May, 1, 12, 0, 0, 0, time.UTC)
	for i, ts := range []time.Time{base, base.Add(-time.Hour)} {
		description := fmt.Sprintf("change %d", i)
		_, err := s.processes.UpdateProcess(ctx, id, func(p *models.Process) (ProcessChange, error) {
			previous := p.Stage
			p.Stage = models.PriceResearch
			return ProcessChange{Event: models.AuditEvent{
				EntityID:    p.ID,
				Timestamp:   ts,
				Category:    models.StageChanged,
				Description: description,
				ActorID:     ownerId,
				FromStage:   previous,
				ToStage:     p.Stage,
			}}, nil
		})
		s.Require().NoError(err)
	}

	events, err := s.audit.ListAuditEvents(ctx, id)
	s.Require().NoError(err)
	s.Require().Len(events, 3)
	s.Equal(models.ProcessOpened, events[0].Category)
	s.Equal("change 0", events[1].Description)
	s.Equal("change 1", events[2].Description)
	s.True(events[2].Timestamp.Equal(base))
	s.Less(events[1].Sequence, events[2].Sequence)
	s.Equal(models.TorDrafting, events[1].FromStage)
	s.Equal(models.PriceResearch, events[1].ToStage)
	s.Equal(ownerId, events[1].ActorID)
	s.Empty(events[0].FromStage)
}
