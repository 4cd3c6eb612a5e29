package ast

// AssignedNames returns the identifiers assigned anywhere in stmts, in order
// of first appearance. Nested branches and loops are searched; subroutine
// literals are not, since they have their own scope.
func AssignedNames(stmts []Stmt) []string {
	var names []string
	seen := make(map[string]bool)
	var walk func([]Stmt)
	walk = func(stmts []Stmt) {
		for _, s := range stmts {
			switch s := s.(type) {
			case Assign:
				if id, ok := s.Target.(Ident); ok && !seen[id.Name] {
					seen[id.Name] = true
					names = append(names, id.Name)
				}
			case OpAssign:
				if id, ok := s.Target.(Ident); ok && !seen[id.Name] {
					seen[id.Name] = true
					names = append(names, id.Name)
				}
			case If:
				walk(s.Then)
				walk(s.Else)
			case Loop:
				walk(s.Pre)
				walk(s.Post)
			}
		}
	}
	walk(stmts)
	return names
}
