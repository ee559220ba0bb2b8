// Package roster reads the school roster used to seed the gradebook.
//
// A roster is a TOML file describing schools with their manager
// credentials, teachers, grades, classes, subjects and students:
//
//	default_password = "changeme"
//
//	[[schools]]
//	name = "دبستان نمونه"
//	manager_name = "مدیر"
//	username = "manager1"
//
//	[[schools.teachers]]
//	name = "خانم احمدی"
//	username = "ahmadi"
//
//	[[schools.grades]]
//	name = "پایه اول"
//
//	[[schools.grades.classes]]
//	name = "کلاس ۱"
//
//	[[schools.grades.classes.subjects]]
//	name = "ریاضی"
//	teacher = "ahmadi"
//	coefficient = 2
//
//	[[schools.grades.classes.students]]
//	name = "علی"
//	username = "ali"
//
// Accounts without a password get default_password. Load validates the
// structure with go-playground/validator and checks that usernames are
// unique per role and that every subject names a teacher of its school.
package roster
