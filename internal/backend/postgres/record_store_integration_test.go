// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Phiona Contributors

//go:build integration

package postgres_test

import (
	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
	"github.com/oklog/ulid/v2"

	"github.com/phiona/phiona/internal/apperr"
	"github.com/phiona/phiona/internal/backend"
	"github.com/phiona/phiona/internal/backend/postgres"
)

var _ = Describe("RecordStore", func() {
	var (
		store  *postgres.RecordStore
		userID string
	)

	registration := func(name string) backend.Fields {
		return backend.Fields{
			"user_id":        userID,
			"hackathon_name": name,
			"full_name":      "Ada Lovelace",
			"email":          "ada@example.com",
			"university":     "MIT",
			"skillset":       "Go",
			"experience":     "some",
		}
	}

	BeforeEach(func() {
		store = postgres.NewRecordStore(pool)
		userID = ulid.Make().String()
		_, err := store.CreateRecord(suiteCtx, backend.TableProfiles, backend.Fields{"id": userID, "username": "ada"})
		Expect(err).NotTo(HaveOccurred())
	})

	It("creates and finds a registration", func() {
		created, err := store.CreateRecord(suiteCtx, backend.TableRegistrations, registration("Spring Hack"))
		Expect(err).NotTo(HaveOccurred())
		Expect(created.ID).NotTo(BeEmpty())
		Expect(created.String("registration_status")).To(Equal("completed"))
		Expect(created.CreatedAt.IsZero()).To(BeFalse())

		found, err := store.FindRecord(suiteCtx, backend.TableRegistrations,
			backend.Filter{"user_id": userID, "hackathon_name": "Spring Hack"})
		Expect(err).NotTo(HaveOccurred())
		Expect(found).NotTo(BeNil())
		Expect(found.ID).To(Equal(created.ID))
	})

	It("reports nil for an absent row", func() {
		found, err := store.FindRecord(suiteCtx, backend.TableRegistrations,
			backend.Filter{"user_id": userID, "hackathon_name": "Nope"})
		Expect(err).NotTo(HaveOccurred())
		Expect(found).To(BeNil())
	})

	It("rejects a second registration for the same event as a duplicate", func() {
		_, err := store.CreateRecord(suiteCtx, backend.TableRegistrations, registration("Dup Hack"))
		Expect(err).NotTo(HaveOccurred())

		_, err = store.CreateRecord(suiteCtx, backend.TableRegistrations, registration("Dup Hack"))
		Expect(apperr.KindOf(err)).To(Equal(apperr.Duplicate))
	})

	It("classifies a missing profile as a reference error", func() {
		fields := registration("Orphan Hack")
		fields["user_id"] = ulid.Make().String()
		_, err := store.CreateRecord(suiteCtx, backend.TableRegistrations, fields)
		Expect(apperr.KindOf(err)).To(Equal(apperr.Reference))
	})

	It("classifies a check violation as invalid data", func() {
		fields := registration("Check Hack")
		fields["experience"] = "expert"
		_, err := store.CreateRecord(suiteCtx, backend.TableRegistrations, fields)
		Expect(apperr.KindOf(err)).To(Equal(apperr.InvalidData))
	})

	It("lists newest first and updates profiles", func() {
		for _, name := range []string{"A Hack", "B Hack"} {
			_, err := store.CreateRecord(suiteCtx, backend.TableRegistrations, registration(name))
			Expect(err).NotTo(HaveOccurred())
		}
		recs, err := store.ListRecords(suiteCtx, backend.TableRegistrations, backend.Filter{"user_id": userID},
			backend.Query{OrderBy: "registration_timestamp", Desc: true})
		Expect(err).NotTo(HaveOccurred())
		Expect(recs).To(HaveLen(2))
		Expect(recs[0].String("hackathon_name")).To(Equal("B Hack"))

		updated, err := store.UpdateRecord(suiteCtx, backend.TableProfiles, userID, backend.Fields{"bio": "hello"})
		Expect(err).NotTo(HaveOccurred())
		Expect(updated.String("bio")).To(Equal("hello"))
	})

	It("lists the seeded competitions", func() {
		recs, err := store.ListRecords(suiteCtx, backend.TableCompetitions, nil,
			backend.Query{OrderBy: "created_at", Desc: true})
		Expect(err).NotTo(HaveOccurred())
		Expect(len(recs)).To(BeNumerically(">=", 3))
	})
})
