package main

import (
	"bufio"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/ternarybob/engel/internal/scraping"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Manage the name list read by LIST jobs",
}

var listSetCmd = &cobra.Command{
	Use:   "set [names...]",
	Short: "Replace the list with the given names, or names read from --file",
	RunE:  runListSet,
}

var listShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the stored names",
	RunE:  runListShow,
}

var listClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every stored name",
	RunE:  runListClear,
}

var listFile string

func init() {
	listSetCmd.Flags().StringVarP(&listFile, "file", "f", "", "File with one name per line")
	listCmd.AddCommand(listSetCmd, listShowCmd, listClearCmd)
}

func runListSet(cmd *cobra.Command, args []string) error {
	names := append([]string{}, args...)
	if listFile != "" {
		fileNames, err := readLines(listFile)
		if err != nil {
			return err
		}
		names = append(names, fileNames...)
	}

	application, err := newApp()
	if err != nil {
		return err
	}
	defer application.Close()

	cleaned := scraping.CleanList(names)
	if err := application.StorageManager.ListStorage().SetList(cmd.Context(), cleaned); err != nil {
		return fmt.Errorf("failed to save list: %w", err)
	}
	logger.Info().Int("count", len(cleaned)).Msg("Name list saved")
	return nil
}

func runListShow(cmd *cobra.Command, args []string) error {
	application, err := newApp()
	if err != nil {
		return err
	}
	defer application.Close()

	names, err := application.StorageManager.ListStorage().GetList(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to load list: %w", err)
	}
	for _, name := range names {
		fmt.Println(name)
	}
	return nil
}

func runListClear(cmd *cobra.Command, args []string) error {
	application, err := newApp()
	if err != nil {
		return err
	}
	defer application.Close()

	if err := application.StorageManager.ListStorage().ClearList(cmd.Context()); err != nil {
		return fmt.Errorf("failed to clear list: %w", err)
	}
	logger.Info().Msg("Name list cleared")
	return nil
}

func readLines(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return lines, nil
}
