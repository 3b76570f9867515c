// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Phiona Contributors

//go:build integration

package postgres_test

import (
	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/phiona/phiona/internal/accounts"
	accountspg "github.com/phiona/phiona/internal/accounts/postgres"
	"github.com/phiona/phiona/internal/apperr"
)

var _ = Describe("Account service on PostgreSQL", func() {
	var svc *accounts.Service

	BeforeEach(func() {
		var err error
		svc, err = accounts.NewService(accountspg.NewStore(pool),
			accounts.NewArgon2idHasher(accounts.Params{Time: 1, Memory: 64, Threads: 1}),
			accounts.Options{AutoConfirm: true})
		Expect(err).NotTo(HaveOccurred())
	})

	It("registers, authenticates and rejects a second sign-up", func() {
		acct, err := svc.Register(suiteCtx, "grace@example.com", "secret1", map[string]string{"school": "Yale"})
		Expect(err).NotTo(HaveOccurred())

		got, err := svc.Authenticate(suiteCtx, "GRACE@example.com", "secret1")
		Expect(err).NotTo(HaveOccurred())
		Expect(got.ID).To(Equal(acct.ID))
		Expect(got.Attributes).To(HaveKeyWithValue("school", "Yale"))

		_, err = svc.Register(suiteCtx, "Grace@Example.com", "secret1", nil)
		Expect(apperr.KindOf(err)).To(Equal(apperr.Auth))
		Expect(apperr.Message(err)).To(Equal(accounts.MsgAlreadyRegistered))
	})
})
