// Command boxoffice-crawler harvests movie metadata by release year into a CSV.
package main

import "github.com/JakeFAU/boxoffice-crawler/cmd"

func main() {
	cmd.Execute()
}
