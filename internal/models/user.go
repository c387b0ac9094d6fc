package models

import (
	"time"
)

// User is a registered account. Email is the login identifier.
type User struct {
	_ struct{} `dbdef:"table:users;index:idx_users_username,username"`

	ID           int64     `db:"id" json:"id" dbdef:"type:bigserial;primary_key"`
	Email        string    `db:"email" json:"email" dbdef:"type:varchar(254);not_null;unique"`
	Username     string    `db:"username" json:"username" dbdef:"type:varchar(150);not_null;unique"`
	FirstName    string    `db:"first_name" json:"first_name" dbdef:"type:varchar(150);not_null"`
	LastName     string    `db:"last_name" json:"last_name" dbdef:"type:varchar(150);not_null"`
	PasswordHash string    `db:"password_hash" json:"-" dbdef:"type:varchar(255);not_null"`
	IsAdmin      bool      `db:"is_admin" json:"-" dbdef:"type:boolean;not_null;default:false"`
	CreatedAt    time.Time `db:"created_at" json:"-" dbdef:"type:timestamptz;not_null;default:now()"`
}

// Subscription is a directed follow from Follower to Author.
type Subscription struct {
	_ struct{} `dbdef:"table:subscriptions;unique:uk_subscriptions_pair,follower_id,author_id;check:ck_subscriptions_no_self,follower_id <> author_id"`

	ID         int64     `db:"id" json:"id" dbdef:"type:bigserial;primary_key"`
	FollowerID int64     `db:"follower_id" json:"follower_id" dbdef:"type:bigint;not_null;foreign_key:users.id;on_delete:CASCADE"`
	AuthorID   int64     `db:"author_id" json:"author_id" dbdef:"type:bigint;not_null;foreign_key:users.id;on_delete:CASCADE"`
	CreatedAt  time.Time `db:"created_at" json:"created_at" dbdef:"type:timestamptz;not_null;default:now()"`
}
