// Wayfarer - Tourism Marketplace Real-Time Messaging and Notifications
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfarer

// Package authz decides role-based capabilities using Casbin.
//
// Chat membership checks stay in the chat service; this package only answers
// questions of the form "may a caller holding these roles perform this action
// on this kind of object", for example whether a user may create a group chat.
//
// # Model
//
// The embedded model is RBAC with key matching on the object and a wildcard
// action:
//
//	m = g(r.sub, p.sub) && keyMatch(r.obj, p.obj) && (r.act == p.act || p.act == "*")
//
// The embedded policy grants the member role the right to create chats and
// lets tourist, guide, operator and admin inherit from member. A policy file
// set via security.policy_path replaces the embedded policy and is reloaded
// periodically.
//
// # Usage
//
//	enforcer, err := authz.NewEnforcer(authz.ConfigFromSecurity(&cfg.Security))
//	if err != nil {
//		return err
//	}
//	defer enforcer.Close()
//
//	ok, err := enforcer.CanCreateGroup(claims.UserID, claims.Roles)
package authz
