// services/verifier-svc/cmd/kata.go
package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"stochastic/pkg/apperror"
	"stochastic/pkg/kata"
)

func buildKataCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "kata",
		Short: "Small standalone exercises",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "isomorphic <s> <t>",
			Short: "Check whether two strings are isomorphic",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				fmt.Fprintln(cmd.OutOrStdout(), kata.IsIsomorphic(args[0], args[1]))
				return nil
			},
		},
		&cobra.Command{
			Use:   "missing <n...>",
			Short: "Find the number missing from 0..n",
			RunE: func(cmd *cobra.Command, args []string) error {
				nums := make([]int, len(args))
				for i, a := range args {
					n, err := strconv.Atoi(a)
					if err != nil {
						return apperror.NewWithField(apperror.CodeInvalidArgument,
							fmt.Sprintf("not an integer: %q", a), "n")
					}
					nums[i] = n
				}
				fmt.Fprintln(cmd.OutOrStdout(), kata.MissingNumber(nums))
				return nil
			},
		},
		&cobra.Command{
			Use:   "factors <n>",
			Short: "Prime factorization of n",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				n, err := strconv.ParseInt(args[0], 10, 64)
				if err != nil {
					return apperror.NewWithField(apperror.CodeInvalidArgument,
						fmt.Sprintf("not an integer: %q", args[0]), "n")
				}
				factors := kata.PrimeFactors(n)
				parts := make([]string, len(factors))
				for i, p := range factors {
					parts[i] = strconv.FormatInt(p, 10)
				}
				fmt.Fprintln(cmd.OutOrStdout(), "["+strings.Join(parts, " ")+"]")
				return nil
			},
		},
	)
	return cmd
}
