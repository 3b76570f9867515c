// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Phiona Contributors

//go:build integration

package postgres_test

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/phiona/phiona/internal/backend/postgres"
)

var (
	suiteCtx  context.Context
	container *tcpostgres.PostgresContainer
	connStr   string
	pool      *pgxpool.Pool
)

func TestPostgres(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Postgres Backend Suite")
}

var _ = BeforeSuite(func() {
	suiteCtx = context.Background()

	var err error
	container, err = tcpostgres.Run(suiteCtx,
		"postgres:18-alpine",
		tcpostgres.WithDatabase("phiona"),
		tcpostgres.WithUsername("phiona"),
		tcpostgres.WithPassword("phiona"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").WithOccurrence(2)),
	)
	Expect(err).NotTo(HaveOccurred())

	connStr, err = container.ConnectionString(suiteCtx, "sslmode=disable")
	Expect(err).NotTo(HaveOccurred())

	migrator, err := postgres.NewMigrator(connStr)
	Expect(err).NotTo(HaveOccurred())
	Expect(migrator.Up()).To(Succeed())
	Expect(migrator.Close()).To(Succeed())

	pool, err = postgres.Connect(suiteCtx, connStr)
	Expect(err).NotTo(HaveOccurred())
})

var _ = AfterSuite(func() {
	if pool != nil {
		pool.Close()
	}
	if container != nil {
		Expect(container.Terminate(suiteCtx)).To(Succeed())
	}
})
