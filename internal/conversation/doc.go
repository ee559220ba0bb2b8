// Package conversation runs the menu-driven chat flows of the gradebook.
//
// # Overview
//
// Service sits between the chat transport and the store. Every inbound
// message is normalized (Persian and Arabic-Indic digits to ASCII, trimmed),
// matched to the chat's session and handed to the handler of the session's
// state:
//
//	svc := conversation.New(store, messenger, charts, analyst, session.NewStore(32), logger)
//	err := svc.Handle(ctx, conversation.Inbound{ChatID: room, SenderID: user, Text: body})
//
// # Flows
//
//   - Gate: choose role, username, password. Failed logins go back to the
//     username prompt.
//   - Password: "+" from any authenticated state asks for a new password,
//     then returns to the role's menu whatever the outcome.
//   - Manager: create and approve report periods, the school analysis and
//     the score entry completion check with teacher reminders.
//   - Teacher: period, subject, then batch entry, a class summary or a
//     single student's score.
//   - Student: approved periods and the report card with charts and history.
//
// # Navigation
//
// "/start" and "/خروج" always start over at the role prompt. Inside the
// engines "*" ends the session and "#" goes back one level; "#" at a main
// menu ends the session. Engines return session.Reset to end it.
//
// # Failure Handling
//
// Handlers work on a clone of the session state. A data error is reported
// to the user and leaves the step where it was. A handler error, a panic or
// an invalid resulting state discards the clone, so the session keeps the
// state the message started from. Chart files are removed after sending on
// every path.
package conversation
