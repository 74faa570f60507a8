// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

//go:build integration

package auth_test

import (
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
	"golang.org/x/crypto/bcrypt"

	"github.com/holomush/authkit/internal/auth"
)

const oldPassword = "the original password"

// signup creates a fresh account and returns its normalized email.
func signup() (string, *auth.PublicUser) {
	GinkgoHelper()
	email := strings.ToLower(ulid.Make().String()) + "@example.com"
	user, _, err := env.Service.Signup(env.ctx, "  "+strings.ToUpper(email)+" ", oldPassword)
	Expect(err).NotTo(HaveOccurred())
	return email, user
}

var _ = Describe("Authentication", func() {
	It("authenticates a stored account and never exposes the digest", func() {
		email, created := signup()
		Expect(created.Email).To(Equal(email))

		user, err := env.Service.Authenticate(env.ctx, email, oldPassword)
		Expect(err).NotTo(HaveOccurred())
		Expect(user.ID).To(Equal(created.ID))
		raw, err := json.Marshal(user)
		Expect(err).NotTo(HaveOccurred())
		Expect(strings.ToLower(string(raw))).NotTo(ContainSubstring("password"))
	})

	It("fails the same way for an unknown email and a wrong password", func() {
		email, _ := signup()

		_, unknownErr := env.Service.Authenticate(env.ctx, "nobody-"+email, oldPassword)
		_, wrongErr := env.Service.Authenticate(env.ctx, email, "not the password")

		Expect(unknownErr).To(MatchError(auth.ErrAuthentication))
		Expect(wrongErr).To(MatchError(auth.ErrAuthentication))
		Expect(auth.Outcome(unknownErr)).To(Equal(auth.Outcome(wrongErr)))
	})

	It("upgrades a legacy bcrypt digest on login", func() {
		legacy, err := bcrypt.GenerateFromPassword([]byte(oldPassword), bcrypt.MinCost)
		Expect(err).NotTo(HaveOccurred())
		email := strings.ToLower(ulid.Make().String()) + "@example.com"
		user, err := auth.NewUser(email, string(legacy), auth.RoleUser)
		Expect(err).NotTo(HaveOccurred())
		Expect(env.Users.Create(env.ctx, user)).To(Succeed())

		_, err = env.Service.Authenticate(env.ctx, email, oldPassword)
		Expect(err).NotTo(HaveOccurred())

		stored, err := env.Users.GetByID(env.ctx, user.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(stored.HashedPassword).To(HavePrefix("$argon2id$"))

		_, err = env.Service.Authenticate(env.ctx, email, oldPassword)
		Expect(err).NotTo(HaveOccurred(), "the upgraded digest still verifies")
	})
})

var _ = Describe("Password reset", func() {
	It("resets the password end to end", func() {
		email, user := signup()
		_, grant, err := env.Service.Login(env.ctx, email, oldPassword)
		Expect(err).NotTo(HaveOccurred())

		Expect(env.Service.RequestPasswordReset(env.ctx, email)).To(Succeed())
		token := env.lastResetToken(email)

		reset, err := env.Service.PerformPasswordReset(env.ctx, token, "newpass1234", "newpass1234")
		Expect(err).NotTo(HaveOccurred())
		Expect(reset.ID).To(Equal(user.ID))

		_, err = env.Service.Authenticate(env.ctx, email, "newpass1234")
		Expect(err).NotTo(HaveOccurred())
		_, err = env.Service.Authenticate(env.ctx, email, oldPassword)
		Expect(err).To(MatchError(auth.ErrAuthentication))

		_, err = env.Service.CurrentUser(env.ctx, grant.Token)
		Expect(err).To(HaveOccurred(), "sessions opened before the reset are revoked")
	})

	It("succeeds silently for an unknown email without issuing a token", func() {
		before := len(env.Notifier.Messages())
		Expect(env.Service.RequestPasswordReset(env.ctx, "ghost-"+ulid.Make().String()+"@example.com")).To(Succeed())
		Expect(env.Notifier.Messages()).To(HaveLen(before))
	})

	It("leaves exactly one live token after repeated requests", func() {
		email, user := signup()

		Expect(env.Service.RequestPasswordReset(env.ctx, email)).To(Succeed())
		first := env.lastResetToken(email)
		Expect(env.Service.RequestPasswordReset(env.ctx, email)).To(Succeed())
		second := env.lastResetToken(email)
		Expect(second).NotTo(Equal(first))

		Expect(env.Issuer.Count(env.ctx, user.ID)).To(Equal(1))

		_, err := env.Service.PerformPasswordReset(env.ctx, first, "newpass1234", "newpass1234")
		Expect(err).To(MatchError(auth.ErrNotFound))
		_, err = env.Service.PerformPasswordReset(env.ctx, second, "newpass1234", "newpass1234")
		Expect(err).NotTo(HaveOccurred())
	})

	It("keeps one live token when requests race", func() {
		email, user := signup()

		var wg sync.WaitGroup
		for range 5 {
			wg.Add(1)
			go func() {
				defer GinkgoRecover()
				defer wg.Done()
				Expect(env.Service.RequestPasswordReset(env.ctx, email)).To(Succeed())
			}()
		}
		wg.Wait()

		Expect(env.Issuer.Count(env.ctx, user.ID)).To(Equal(1))
	})

	It("accepts a token only once", func() {
		email, _ := signup()
		Expect(env.Service.RequestPasswordReset(env.ctx, email)).To(Succeed())
		token := env.lastResetToken(email)

		_, err := env.Service.PerformPasswordReset(env.ctx, token, "newpass1234", "newpass1234")
		Expect(err).NotTo(HaveOccurred())
		_, err = env.Service.PerformPasswordReset(env.ctx, token, "another pass 1", "another pass 1")
		Expect(err).To(MatchError(auth.ErrNotFound))
	})

	It("lets only one of two concurrent redemptions succeed", func() {
		email, _ := signup()
		Expect(env.Service.RequestPasswordReset(env.ctx, email)).To(Succeed())
		token := env.lastResetToken(email)

		results := make(chan error, 2)
		for _, pw := range []string{"first racer 1", "second racer 2"} {
			go func() {
				_, err := env.Service.PerformPasswordReset(env.ctx, token, pw, pw)
				results <- err
			}()
		}

		var succeeded, notFound int
		for range 2 {
			err := <-results
			switch {
			case err == nil:
				succeeded++
			case auth.Outcome(err) == auth.OutcomeNotFound:
				notFound++
			}
		}
		Expect(succeeded).To(Equal(1))
		Expect(notFound).To(Equal(1))
	})

	It("rejects an expired token and burns it", func() {
		_, user := signup()
		plaintext, hash, err := auth.GenerateToken()
		Expect(err).NotTo(HaveOccurred())
		Expect(env.Tokens.Create(env.ctx, &auth.Token{
			ID:          ulid.Make(),
			UserID:      user.ID,
			Type:        auth.TokenResetPassword,
			HashedToken: hash,
			SentTo:      user.Email,
			ExpiresAt:   time.Now().Add(-time.Minute),
			CreatedAt:   time.Now().Add(-time.Hour),
		})).To(Succeed())

		_, err = env.Service.PerformPasswordReset(env.ctx, plaintext, "newpass1234", "newpass1234")
		Expect(err).To(MatchError(auth.ErrTokenExpired))

		_, err = env.Service.PerformPasswordReset(env.ctx, plaintext, "newpass1234", "newpass1234")
		Expect(err).To(MatchError(auth.ErrNotFound))
	})

	It("rejects a confirmation mismatch without touching the token", func() {
		email, _ := signup()
		Expect(env.Service.RequestPasswordReset(env.ctx, email)).To(Succeed())
		token := env.lastResetToken(email)

		_, err := env.Service.PerformPasswordReset(env.ctx, token, "abc1234567", "xyz7654321")
		Expect(err).To(MatchError(auth.ErrValidation))

		_, err = env.Service.PerformPasswordReset(env.ctx, token, "abc1234567", "abc1234567")
		Expect(err).NotTo(HaveOccurred())
	})

	It("cascades tokens away with their user", func() {
		email, user := signup()
		Expect(env.Service.RequestPasswordReset(env.ctx, email)).To(Succeed())
		token := env.lastResetToken(email)

		_, err := env.pool.Exec(env.ctx, `DELETE FROM users WHERE id = $1`, user.ID.String())
		Expect(err).NotTo(HaveOccurred())

		_, err = env.Service.PerformPasswordReset(env.ctx, token, "newpass1234", "newpass1234")
		Expect(err).To(MatchError(auth.ErrNotFound))
	})
})

var _ = Describe("Change password", func() {
	It("requires the current password", func() {
		email, user := signup()

		err := env.Service.ChangePassword(env.ctx, user.ID, "wrong password", "brand new pass")
		Expect(err).To(MatchError(auth.ErrAuthentication))

		Expect(env.Service.ChangePassword(env.ctx, user.ID, oldPassword, "brand new pass")).To(Succeed())
		_, err = env.Service.Authenticate(env.ctx, email, "brand new pass")
		Expect(err).NotTo(HaveOccurred())
	})

	It("reports a vanished user as not found", func() {
		err := env.Service.ChangePassword(env.ctx, ulid.Make(), oldPassword, "brand new pass")
		Expect(err).To(MatchError(auth.ErrNotFound))
	})
})
