package main

import (
	"github.com/PDoakORNL/BetheAnsatz/internal/appshell"
	"github.com/PDoakORNL/BetheAnsatz/internal/hubbardapp"
)

func main() {
	appshell.Main(hubbardapp.RunContext)
}
