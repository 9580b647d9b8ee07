package repository

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/stretchr/testify/suite"
	apperrors "github.com/umalmyha/customer-records/internal/errors"
	"github.com/umalmyha/customer-records/internal/model"
	"github.com/umalmyha/customer-records/pkg/db/transactor"
)

const connectionTimeout = 3 * time.Second

const (
	pgPort         = "54329"
	pgTestUser     = "test"
	pgTestPassword = "test"
	pgTestDB       = "customers"
)

type postgresRepositoryTestSuite struct {
	suite.Suite
	dockerPool *dockertest.Pool
	postgres   *dockertest.Resource
	pgPool     *pgxpool.Pool
	repo       CustomerRepository
	trx        transactor.Transactor
}

func (s *postgresRepositoryTestSuite) SetupSuite() {
	t := s.T()
	assert := s.Require()

	t.Log("build docker pool")
	dockerPool, err := dockertest.NewPool("")
	if err != nil {
		t.Skipf("docker is not available - %v", err)
	}

	if err := dockerPool.Client.Ping(); err != nil {
		t.Skipf("docker is not reachable - %v", err)
	}
	s.dockerPool = dockerPool

	t.Log("starting postgres container...")
	postgres, err := dockerPool.RunWithOptions(&dockertest.RunOptions{
		Repository: "postgres",
		Tag:        "15-alpine",
		Env: []string{
			fmt.Sprintf("POSTGRES_USER=%s", pgTestUser),
			fmt.Sprintf("POSTGRES_PASSWORD=%s", pgTestPassword),
			fmt.Sprintf("POSTGRES_DB=%s", pgTestDB),
		},
		PortBindings: map[docker.Port][]docker.PortBinding{
			"5432/tcp": {{HostIP: "localhost", HostPort: fmt.Sprintf("%s/tcp", pgPort)}},
		},
	}, func(config *docker.HostConfig) {
		config.AutoRemove = true
	})
	assert.NoError(err, "failed to start postgresql")
	s.postgres = postgres

	t.Log("connecting to postgres...")
	pgURI := fmt.Sprintf("postgres://%s:%s@localhost:%s/%s?sslmode=disable", pgTestUser, pgTestPassword, pgPort, pgTestDB)
	err = dockerPool.Retry(func() error {
		ctx, cancel := context.WithTimeout(context.Background(), connectionTimeout)
		defer cancel()

		var e error
		s.pgPool, e = pgxpool.Connect(ctx, pgURI)
		if e != nil {
			return e
		}
		return s.pgPool.Ping(ctx)
	})
	assert.NoError(err, "failed to establish connection to postgresql")

	t.Log("applying schema...")
	migrationPath, err := filepath.Abs("../../migrations/V1__create_customers_table.sql")
	assert.NoError(err, "failed to build path to migrations")

	schema, err := os.ReadFile(migrationPath)
	assert.NoError(err, "failed to read schema")

	_, err = s.pgPool.Exec(context.Background(), string(schema))
	assert.NoError(err, "failed to apply schema")

	s.repo = NewPostgresCustomerRepository(transactor.NewPgxExecutor(s.pgPool))
	s.trx = transactor.NewPgxTransactor(s.pgPool)
}

func (s *postgresRepositoryTestSuite) TearDownSuite() {
	t := s.T()

	if s.pgPool != nil {
		t.Log("closing connection to postgres")
		s.pgPool.Close()
	}

	if s.postgres != nil {
		if err := s.dockerPool.Purge(s.postgres); err != nil {
			t.Logf("failed to purge postgres container - %v", err)
		}
	}
}

func (s *postgresRepositoryTestSuite) SetupTest() {
	_, err := s.pgPool.Exec(context.Background(), "TRUNCATE customers")
	s.Require().NoError(err, "failed to clean customers table")
}

func (s *postgresRepositoryTestSuite) TestCustomerLifecycle() {
	t := s.T()
	require := s.Require()
	ctx := context.Background()

	john := &model.Customer{Name: "John Doe", Email: "john@example.com", Age: 25}

	t.Log("empty table returns empty list")
	{
		customers, err := s.repo.FindAll(ctx)
		require.NoError(err, "no error must be raised")
		require.NotNil(customers)
		require.Empty(customers)
	}

	t.Log("create customer")
	{
		err := s.repo.Create(ctx, john)
		require.NoError(err, "failed to create customer")
		require.NotEmpty(john.ID, "id must be assigned")
	}

	t.Log("create customer duplicate")
	{
		err := s.repo.Create(ctx, &model.Customer{Name: "Jane Doe", Email: john.Email, Age: 30})
		require.IsType(&apperrors.ConflictErr{}, err, "unique constraint must be reported as conflict")
	}

	t.Log("find customer by email")
	{
		c, err := s.repo.FindByEmail(ctx, john.Email)
		require.NoError(err, "failed to read customer by email")
		require.Equal(john, c)
	}

	t.Log("update customer partially")
	{
		age := 26.0
		c, err := s.repo.UpdateByID(ctx, john.ID, &model.CustomerPatch{Age: &age})
		require.NoError(err, "failed to update customer")
		require.Equal(&model.Customer{ID: john.ID, Name: john.Name, Email: john.Email, Age: 26}, c)
	}

	t.Log("update missing and malformed ids")
	{
		name := "Nobody"
		c, err := s.repo.UpdateByID(ctx, "7b45dbaa-ddf8-4ded-b858-78be123b3e6f", &model.CustomerPatch{Name: &name})
		require.NoError(err, "missing customer is not an error")
		require.Nil(c)

		_, err = s.repo.UpdateByID(ctx, "invalid-id-format", &model.CustomerPatch{Name: &name})
		require.IsType(&apperrors.StoreErr{}, err, "malformed id must be store error")
	}

	t.Log("delete customer")
	{
		c, err := s.repo.DeleteByID(ctx, john.ID)
		require.NoError(err, "failed to delete customer")
		require.Equal(john.Name, c.Name, "pre-delete customer must be returned")

		c, err = s.repo.DeleteByID(ctx, john.ID)
		require.NoError(err, "missing customer is not an error")
		require.Nil(c)
	}
}

func (s *postgresRepositoryTestSuite) TestCreateWithinTransactionRollback() {
	require := s.Require()
	ctx := context.Background()

	err := s.trx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, &model.Customer{Name: "John Doe", Email: "john@example.com", Age: 25}); err != nil {
			return err
		}
		return fmt.Errorf("abort")
	})
	require.Error(err, "transaction must be aborted")

	c, err := s.repo.FindByEmail(ctx, "john@example.com")
	require.NoError(err)
	require.Nil(c, "insert must be rolled back")
}

func (s *postgresRepositoryTestSuite) TestNestedTransactionJoinsOuter() {
	require := s.Require()
	ctx := context.Background()

	err := s.trx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.trx.WithinTransaction(ctx, func(ctx context.Context) error {
			return s.repo.Create(ctx, &model.Customer{Name: "Jane Doe", Email: "jane@example.com", Age: 30})
		}); err != nil {
			return err
		}
		return fmt.Errorf("abort")
	})
	require.Error(err, "transaction must be aborted")

	c, err := s.repo.FindByEmail(ctx, "jane@example.com")
	require.NoError(err)
	require.Nil(c, "insert of nested call must be rolled back with outer transaction")
}

// start postgres repository test suite
func TestPostgresRepositoryTestSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("postgres repository tests require docker")
	}
	suite.Run(t, new(postgresRepositoryTestSuite))
}
