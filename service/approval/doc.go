// Package approval decides how many approvals an expense needs and which team
// members are asked to give them. Approvers are routed by role pairing so that
// nobody ever approves their own expense.
package approval
